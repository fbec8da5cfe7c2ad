package handler

import "net/http"

// ----- Handler: GET /races -----

func (handler *RaceHTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.Overview(ctx))
}
