package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"racegap/internal/domain/race"
	"racegap/internal/general/config"
	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

func testLogger() *logger.Logger { return logger.NewWithWriter("race-service", io.Discard) }

type published struct {
	exchange, key string
	body          []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (r *recorder) publish(exchange, key string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{exchange, key, body})
	return r.err
}

func TestPublisherRoutesByRace(t *testing.T) {
	rec := &recorder{}
	pub := newPublisher(rec.publish, testLogger(), 8)

	ctx := context.Background()
	pub.PublishLeaderboard(ctx, contracts.LeaderboardMessage{RaceID: "race123", Rows: []contracts.LeaderboardRow{}})
	pub.PublishLap(ctx, contracts.LapMessage{RaceID: "race123", Lap: 2})

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := pub.Run(runCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.msgs) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(rec.msgs))
	}
	if rec.msgs[0].exchange != contracts.ExchangeRaceTopic || rec.msgs[0].key != "race.leaderboard.race123" {
		t.Fatalf("unexpected leaderboard routing %+v", rec.msgs[0])
	}
	if rec.msgs[1].key != "race.lap.race123" {
		t.Fatalf("unexpected lap routing key %q", rec.msgs[1].key)
	}

	var lap contracts.LapMessage
	if err := json.Unmarshal(rec.msgs[1].body, &lap); err != nil || lap.Lap != 2 {
		t.Fatalf("unexpected lap body %s (err %v)", rec.msgs[1].body, err)
	}
}

func TestPublisherDropsWhenFull(t *testing.T) {
	rec := &recorder{}
	pub := newPublisher(rec.publish, testLogger(), 1)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		pub.PublishLap(ctx, contracts.LapMessage{RaceID: "r", Lap: i + 1})
	}
	if got := pub.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped events, got %d", got)
	}
}

func TestPublisherSurvivesBrokerErrors(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	pub := newPublisher(rec.publish, testLogger(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()

	pub.PublishLap(context.Background(), contracts.LapMessage{RaceID: "r", Lap: 1})
	pub.PublishLap(context.Background(), contracts.LapMessage{RaceID: "r", Lap: 2})

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.msgs)
		rec.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected both events attempted, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type fakeRaceService struct {
	ports.RaceService
	err  error
	got  []contracts.TelemetryMessage
	reqs []string
}

func (f *fakeRaceService) HandleDeviceTelemetry(ctx context.Context, msg contracts.TelemetryMessage) error {
	f.got = append(f.got, msg)
	f.reqs = append(f.reqs, logger.RequestIDFrom(ctx))
	return f.err
}

func TestTelemetryHandle(t *testing.T) {
	valid := []byte(`{"type":"update","race_id":"race123","device_id":"dev-1","lat":1,"lng":2,"speed":3}`)

	cases := []struct {
		name   string
		body   []byte
		svcErr error
		want   Outcome
		calls  int
	}{
		{"accepted", valid, nil, Ack, 1},
		{"malformed json is dropped", []byte(`{"type":`), nil, Reject, 0},
		{"invalid payload is dropped", valid, contracts.ErrInvalidTelemetry, Reject, 1},
		{"unknown device is acked", valid, race.ErrUnknownCompetitor, Ack, 1},
		{"timeout is requeued", valid, context.DeadlineExceeded, Requeue, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeRaceService{err: tc.svcErr}
			c := NewTelemetryConsumer(nil, svc, testLogger(), 4)

			if got := c.handle(context.Background(), amqp.Delivery{Body: tc.body, CorrelationId: "corr-1"}); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if len(svc.got) != tc.calls {
				t.Fatalf("expected %d service calls, got %d", tc.calls, len(svc.got))
			}
			if tc.calls > 0 {
				if svc.got[0].DeviceID != "dev-1" || *svc.got[0].Speed != 3 {
					t.Fatalf("unexpected message %+v", svc.got[0])
				}
				if svc.reqs[0] != "corr-1" {
					t.Fatalf("expected correlation id to be carried, got %q", svc.reqs[0])
				}
			}
		})
	}
}

type ackRecorder struct {
	acked, requeued, dropped int
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}

func TestSettle(t *testing.T) {
	cases := []struct {
		name        string
		outcome     Outcome
		redelivered bool
		want        ackRecorder
	}{
		{"ack", Ack, false, ackRecorder{acked: 1}},
		{"reject", Reject, false, ackRecorder{dropped: 1}},
		{"first requeue", Requeue, false, ackRecorder{requeued: 1}},
		{"second failure is dropped", Requeue, true, ackRecorder{dropped: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got ackRecorder
			d := amqp.Delivery{Acknowledger: &got, Redelivered: tc.redelivered}
			if err := settle(d, tc.outcome); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestConfirmErr(t *testing.T) {
	if err := confirmErr(amqp.Confirmation{DeliveryTag: 1, Ack: true}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := confirmErr(amqp.Confirmation{DeliveryTag: 2}, true); err == nil {
		t.Fatalf("expected nack error")
	}
	if err := confirmErr(amqp.Confirmation{}, false); err == nil {
		t.Fatalf("expected closed stream error")
	}
}

func TestNextBackoff(t *testing.T) {
	d := initialBackoff
	for i := 0; i < 10; i++ {
		d = nextBackoff(d)
	}
	if d != maxBackoff {
		t.Fatalf("expected backoff capped at %v, got %v", maxBackoff, d)
	}
	if got := nextBackoff(2 * time.Second); got != 4*time.Second {
		t.Fatalf("expected 4s, got %v", got)
	}
}

func TestAMQPURLEscapesCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.RabbitMQ.User = "race"
	cfg.RabbitMQ.Password = "p@ss/word"
	cfg.RabbitMQ.Host = "mq"
	cfg.RabbitMQ.Port = 5672

	if got, want := amqpURL(cfg), "amqp://race:p%40ss%2Fword@mq:5672/"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBindingsCoverEveryQueue(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range bindings() {
		seen[b.queue] = true
	}
	for _, q := range []string{contracts.QueueRaceEvents, contracts.QueueRaceTelemetry} {
		if !seen[q] {
			t.Fatalf("queue %s has no binding", q)
		}
	}
}
