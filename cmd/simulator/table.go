package simulator

import (
	"fmt"
	"io"
	"text/tabwriter"

	"racegap/internal/general/contracts"
)

const clearScreen = "\033[H\033[2J"

// renderBoard prints one leaderboard as a table.
func renderBoard(out io.Writer, board contracts.LeaderboardMessage) {
	fmt.Fprint(out, clearScreen)
	fmt.Fprintf(out, "Race Leaderboard %s\n", board.RaceID)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tName\tDist_m\tGap_s\tSpeed_mps\tLaps\tBest_s")
	for _, r := range board.Rows {
		best := "-"
		if r.BestLapSec > 0 {
			best = fmt.Sprintf("%.1f", r.BestLapSec)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\t%.1f\t%d\t%s\n", r.Rank, r.Name, r.Dist, r.GapSec, r.Speed, r.Laps, best)
	}
	_ = tw.Flush()
}
