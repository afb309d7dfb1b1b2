// Package httpserver exposes the collision server's two endpoints —
// POST /submit_work and GET / — over gorilla/mux, following the
// teacher's pkg/http conventions (a Router built once at startup,
// administrative endpoints registered alongside the application's
// own). Handler bodies are grounded on the original Python
// implementation's handle_submit_work/handle_dashboard, translated
// into the {start, dp}-trusting wire format and error taxonomy this
// search actually specifies.
package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dcollide/birthdayparty/pkg/apierr"
	"github.com/dcollide/birthdayparty/pkg/clock"
	"github.com/dcollide/birthdayparty/pkg/hashparams"
	"github.com/dcollide/birthdayparty/pkg/store"
	"github.com/dcollide/birthdayparty/pkg/util"
)

// Server holds the dependencies shared by every HTTP handler.
type Server struct {
	params hashparams.Params
	store  *store.Store
	clock  clock.Clock
}

// New creates a Server backed by db, validating submissions against
// params.
func New(params hashparams.Params, db *store.Store, clk clock.Clock) *Server {
	return &Server{params: params, store: db, clock: clk}
}

// NewRouter builds the complete mux.Router for the collision server:
// the application routes plus the administrative endpoints every
// service in this lineage exposes (/metrics, /-/healthy, pprof).
func (s *Server) NewRouter() *mux.Router {
	registerMetrics()

	router := mux.NewRouter()
	router.HandleFunc("/submit_work", s.handleSubmitWork).Methods(http.MethodPost)
	router.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	util.RegisterAdministrativeHTTPEndpoints(router)
	return router
}

type submitWorkRequest struct {
	Username  string       `json:"username"`
	UserToken string       `json:"usertoken"`
	Results   []resultPair `json:"results"`
}

type resultPair struct {
	Start string `json:"start"`
	DP    string `json:"dp"`
}

func writeStatus(w http.ResponseWriter, httpStatus int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleSubmitWork(w http.ResponseWriter, r *http.Request) {
	start := s.clock.Now()
	ctx := r.Context()

	var req submitWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, apierr.HTTPStatus(apierr.KindBadRequest), apierr.Message(apierr.KindBadRequest))
		return
	}
	if req.Username == "" || req.UserToken == "" || len(req.Results) == 0 {
		writeStatus(w, apierr.HTTPStatus(apierr.KindBadRequest), apierr.Message(apierr.KindBadRequest))
		return
	}

	ok, err := s.store.Authenticate(ctx, req.Username, req.UserToken)
	if err != nil {
		writeStatus(w, apierr.HTTPStatus(apierr.KindTransient), apierr.Message(apierr.KindTransient))
		return
	}
	if !ok {
		submissionsTotal.WithLabelValues("auth_failure").Inc()
		writeStatus(w, apierr.HTTPStatus(apierr.KindAuthFailure), apierr.Message(apierr.KindAuthFailure))
		return
	}

	type decoded struct{ start, dp []byte }
	records := make([]decoded, 0, len(req.Results))
	for _, r := range req.Results {
		if r.Start == "" || r.DP == "" {
			submissionsTotal.WithLabelValues("bad_format").Inc()
			writeStatus(w, apierr.HTTPStatus(apierr.KindInvalidResultFormat), apierr.Message(apierr.KindInvalidResultFormat))
			return
		}
		startBytes, startErr := hex.DecodeString(r.Start)
		dpBytes, dpErr := hex.DecodeString(r.DP)
		if startErr != nil || dpErr != nil || len(startBytes) != s.params.TotalBytes() || len(dpBytes) != s.params.TotalBytes() {
			submissionsTotal.WithLabelValues("bad_hash_length").Inc()
			writeStatus(w, apierr.HTTPStatus(apierr.KindBadHashLength), apierr.Message(apierr.KindBadHashLength))
			return
		}
		records = append(records, decoded{start: startBytes, dp: dpBytes})
	}

	accepted := 0
	for _, rec := range records {
		if !s.params.IsDistinguished(rec.dp) {
			// ConfigMismatch: dropped silently (for the caller), logged
			// for the operator, never fails the batch.
			log.Printf("submit_work: user %q submitted dp %x that does not satisfy the configured distinguished-point predicate", req.Username, rec.dp)
			continue
		}

		outcome, collision, err := s.store.InsertResult(ctx, req.Username, rec.start, rec.dp)
		if err != nil {
			submissionsTotal.WithLabelValues("transient").Inc()
			writeStatus(w, apierr.HTTPStatus(apierr.KindTransient), apierr.Message(apierr.KindTransient))
			return
		}

		switch outcome {
		case store.OutcomeInserted:
			accepted++
			dpsAcceptedTotal.Inc()
		case store.OutcomeDuplicate:
			// No-op: must not count as new.
		case store.OutcomeCollision:
			accepted++
			dpsAcceptedTotal.Inc()
			if collision.NewlyCreated {
				collisionsDetectedTotal.Inc()
				log.Printf("collision detected: dp=%x start_a=%x start_b=%x", collision.DP, collision.StartA, collision.StartB)
			}
		}
	}

	submissionsTotal.WithLabelValues("accepted").Inc()
	elapsed := s.clock.Now().Sub(start)
	writeStatus(w, http.StatusOK, fmt.Sprintf("accepted %d results in %.2fms", accepted, float64(elapsed.Microseconds())/1000.0))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := s.renderDashboard(ctx)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}
