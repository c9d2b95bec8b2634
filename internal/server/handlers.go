package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cutrackit/courtflow/pkg/identity"
	"github.com/cutrackit/courtflow/pkg/occupancy"
	"github.com/cutrackit/courtflow/pkg/profile"
	"github.com/cutrackit/courtflow/pkg/team"
)

// handlers holds the thin HTTP callers over the occupancy core.
type handlers struct {
	deps Deps
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// resolveUser resolves the request credential to a profile id, writing the
// unauthorized response itself on failure.
func (h *handlers) resolveUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	credential := identity.CredentialFromContext(r.Context())
	userID, err := h.deps.Resolver.Resolve(r.Context(), credential)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}

type checkInRequest struct {
	CourtID int64 `json:"court_id"`
}

type checkInResponse struct {
	Message        string           `json:"message"`
	CurrentPlayers int              `json:"current_players"`
	MaxCapacity    int              `json:"max_capacity"`
	Status         occupancy.Status `json:"status"`
}

func (h *handlers) checkIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourtID == 0 {
		writeError(w, http.StatusBadRequest, "court_id required")
		return
	}

	result, err := h.deps.Manager.CheckIn(r.Context(), userID, req.CourtID)
	switch {
	case errors.Is(err, occupancy.ErrAlreadyCheckedIn):
		writeError(w, http.StatusBadRequest, "Already checked into a court")
	case errors.Is(err, occupancy.ErrCourtNotFound):
		writeError(w, http.StatusNotFound, "Court not found")
	case errors.Is(err, occupancy.ErrCourtFull):
		writeError(w, http.StatusForbidden, "Court is full")
	case err != nil:
		h.storeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, checkInResponse{
			Message:        "Checked in successfully",
			CurrentPlayers: result.CurrentPlayers,
			MaxCapacity:    result.MaxCapacity,
			Status:         result.Status,
		})
	}
}

func (h *handlers) checkOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	err := h.deps.Manager.CheckOut(r.Context(), userID)
	switch {
	case errors.Is(err, occupancy.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, "No active session")
	case err != nil:
		h.storeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Checked out successfully"})
	}
}

func (h *handlers) courtStatus(w http.ResponseWriter, r *http.Request) {
	courtID, err := strconv.ParseInt(mux.Vars(r)["court_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid court id")
		return
	}

	result, err := h.deps.Manager.CourtStatus(r.Context(), courtID)
	switch {
	case errors.Is(err, occupancy.ErrCourtNotFound):
		writeError(w, http.StatusNotFound, "Court not found")
	case err != nil:
		h.storeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *handlers) listCourts(w http.ResponseWriter, r *http.Request) {
	filter := occupancy.ListFilter{
		Status:    occupancy.Status(r.URL.Query().Get("status")),
		NameQuery: r.URL.Query().Get("name"),
	}

	courts, err := h.deps.Manager.ListCourts(r.Context(), filter)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if courts == nil {
		courts = []occupancy.CourtSummary{}
	}
	writeJSON(w, http.StatusOK, courts)
}

func (h *handlers) myProfileID(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"profile_id": userID})
}

type syncProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

func (h *handlers) syncProfile(w http.ResponseWriter, r *http.Request) {
	if h.deps.Subjects == nil {
		writeError(w, http.StatusNotFound, "profile sync not enabled")
		return
	}

	credential := identity.CredentialFromContext(r.Context())
	sub, err := h.deps.Subjects.Subject(r.Context(), credential)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req syncProfileRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	p, created, err := h.deps.Profiles.Sync(r.Context(), profile.SyncInput{
		AuthID:    sub,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile already exists"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Profile created successfully",
		"profile_id": p.ID,
	})
}

type createTeamRequest struct {
	Name        string `json:"name"`
	TeamSize    int    `json:"team_size"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

func (h *handlers) createTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Team name required")
		return
	}

	teamID, err := h.deps.Teams.Create(r.Context(), team.CreateInput{
		Name:        req.Name,
		TeamSize:    req.TeamSize,
		Description: req.Description,
		Tags:        req.Tags,
		CoachID:     userID,
	})
	switch {
	case errors.Is(err, team.ErrNameTaken):
		writeError(w, http.StatusBadRequest, "Team name already exists")
	case err != nil:
		h.storeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Team created successfully",
			"team_id": teamID,
		})
	}
}

type joinTeamRequest struct {
	TeamID int64 `json:"team_id"`
}

func (h *handlers) joinTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req joinTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == 0 {
		writeError(w, http.StatusBadRequest, "Team ID required")
		return
	}

	err := h.deps.Teams.Join(r.Context(), req.TeamID, userID)
	switch {
	case errors.Is(err, team.ErrAlreadyMember):
		writeError(w, http.StatusBadRequest, "You are already in this team!")
	case errors.Is(err, team.ErrNotFound):
		writeError(w, http.StatusNotFound, "Team not found")
	case err != nil:
		h.storeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully joined team!"})
	}
}

// storeError reports an opaque failure without leaking store internals.
func (h *handlers) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if h.deps.Logger != nil {
		h.deps.Logger.Error("store operation failed",
			"path", r.URL.Path, "error", err)
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
