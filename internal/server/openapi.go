package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/meimei/internal/hittest"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse map[string]struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type sessionPath struct {
	ID string `path:"id" format:"uuid"`
}

type clickInput struct {
	sessionPath
	ClickRequest
}

type flagPath struct {
	ID string `path:"id" format:"uuid"`
}

type flagAnswerInput struct {
	flagPath
	FlagAnswerRequest
}

type namespacePath struct {
	Namespace string `path:"namespace" example:"flag_minigame_top_scores"`
}

type addScoreInput struct {
	namespacePath
	AddScoreRequest
}

type catalogPath struct {
	Projection string `path:"projection" enum:"worldMap,continentMap"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               []response
}

type response struct {
	status int
	body   any
	ctype  string
}

func respOK(body any) response { return response{status: http.StatusOK, body: body} }

func respErr(status int) response { return response{status: status, body: ErrorResponse{}} }

func respStream(ctype string) response { return response{status: http.StatusOK, ctype: ctype} }

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.", nil,
		[]response{respOK(HealthResponse{}), {status: http.StatusServiceUnavailable, body: HealthResponse{}}}},
	{http.MethodGet, "/metrics", "Prometheus metrics", "Exposition format scrape endpoint.", nil,
		[]response{respStream("text/plain")}},
	{http.MethodGet, "/api/catalog/{projection}", "List locations", "Locations in the projection, without coordinates.", catalogPath{},
		[]response{respOK([]CatalogEntry{}), respErr(http.StatusBadRequest)}},
	{http.MethodPost, "/api/sessions", "Start a session", "Starts a new play-through with a random first target.", nil,
		[]response{{status: http.StatusCreated, body: SessionResponse{}}}},
	{http.MethodGet, "/api/sessions/{id}", "Get session", "Current state of a play-through.", sessionPath{},
		[]response{respOK(SessionResponse{}), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/sessions/{id}/clicks", "Submit a map click", "Hit-tests a click in source-image pixels, or in display pixels when a transform is given.", clickInput{},
		[]response{respOK(ClickResponse{}), respErr(http.StatusBadRequest), respErr(http.StatusNotFound), respErr(http.StatusConflict)}},
	{http.MethodPost, "/api/sessions/{id}/continue", "Acknowledge result", "Dismisses the last result. After a hit, moves to the next location or completes the session.", sessionPath{},
		[]response{respOK(ContinueResponse{}), respErr(http.StatusNotFound), respErr(http.StatusConflict)}},
	{http.MethodPost, "/api/sessions/{id}/travel/dismiss", "Dismiss travel summary", "Hides the travel path overlay.", sessionPath{},
		[]response{{status: http.StatusNoContent}, respErr(http.StatusNotFound), respErr(http.StatusConflict)}},
	{http.MethodPost, "/api/sessions/{id}/restart", "Restart session", "Starts a new play-through under the same id.", sessionPath{},
		[]response{respOK(SessionResponse{}), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/sessions/{id}/path", "Visited path", "Catalog coordinates of every solved location in visit order.", sessionPath{},
		[]response{respOK(PathResponse{}), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/sessions/{id}/hint", "Hint circle", "Draws a new hint circle around the current target. Each call jitters the center again.", sessionPath{},
		[]response{respOK(hittest.Circle{}), respErr(http.StatusNotFound), respErr(http.StatusConflict)}},
	{http.MethodGet, "/api/sessions/{id}/events", "SSE event stream", "Server-Sent Events for attempts, advances and completion.", sessionPath{},
		[]response{respStream("text/event-stream"), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/sessions/{id}/ws", "WebSocket event stream", "Upgrades to a WebSocket carrying the same events as the SSE stream.", sessionPath{},
		[]response{{status: http.StatusSwitchingProtocols, ctype: "text/plain"}, respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/flags", "Start flag quiz", "Starts a flag minigame and returns the first round.", nil,
		[]response{{status: http.StatusCreated, body: FlagQuizResponse{}}}},
	{http.MethodGet, "/api/flags/{id}", "Get flag quiz", "Current round, score and state.", flagPath{},
		[]response{respOK(FlagQuizResponse{}), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/flags/{id}/answer", "Answer flag round", "Scores a flag code for the current round. The next round starts automatically.", flagAnswerInput{},
		[]response{respOK(FlagAnswerResponse{}), respErr(http.StatusBadRequest), respErr(http.StatusNotFound), respErr(http.StatusConflict)}},
	{http.MethodGet, "/api/scores/{namespace}", "Top scores", "Best five scores, highest first.", namespacePath{},
		[]response{respOK(ScoresResponse{}), respErr(http.StatusBadRequest)}},
	{http.MethodPost, "/api/scores/{namespace}", "Add score", "Records a score and returns the updated top five.", addScoreInput{},
		[]response{respOK(ScoresResponse{}), respErr(http.StatusBadRequest)}},
	{http.MethodDelete, "/api/scores/{namespace}", "Reset scores", "Clears a namespace. Requires admin basic auth.", namespacePath{},
		[]response{{status: http.StatusNoContent}, respErr(http.StatusUnauthorized), respErr(http.StatusForbidden)}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Mei Mei API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for Mei Mei's Adventure, a location-guessing game.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.ctype != "" {
				opts = append(opts, openapi.WithContentType(resp.ctype))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
