package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/trousev/mealcontrol/internal/detection"
	"github.com/trousev/mealcontrol/internal/domain"
	"github.com/trousev/mealcontrol/internal/inference"
)

// maxPhotoBytes caps uploads; phone photos compressed client-side stay well
// under this.
const maxPhotoBytes = 10 << 20

type turnJSON struct {
	Content         string `json:"content"`
	FromUser        bool   `json:"from_user"`
	TimestampMillis int64  `json:"timestamp_millis"`
}

type componentJSON struct {
	Name         string  `json:"name"`
	WeightGrams  float64 `json:"weight_g"`
	EnergyKcal   float64 `json:"energy_kcal"`
	ProteinGrams float64 `json:"protein_g"`
	FatGrams     float64 `json:"fat_g"`
	CarbGrams    float64 `json:"carb_g"`
}

type detectionStateJSON struct {
	PhotoKey   string          `json:"photo_key,omitempty"`
	Turns      []turnJSON      `json:"turns"`
	Components []componentJSON `json:"components,omitempty"`
	Question   string          `json:"question,omitempty"`
	MealName   string          `json:"meal_name,omitempty"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
}

func componentToJSON(c domain.MealComponent) componentJSON {
	return componentJSON{
		Name:         c.Name,
		WeightGrams:  c.WeightGrams,
		EnergyKcal:   c.EnergyKcal,
		ProteinGrams: c.ProteinGrams,
		FatGrams:     c.FatGrams,
		CarbGrams:    c.CarbGrams,
	}
}

func (s *Server) stateJSON(st detection.State) detectionStateJSON {
	out := detectionStateJSON{
		PhotoKey: s.currentPhotoKey(),
		Turns:    make([]turnJSON, 0, len(st.Turns)),
		Question: st.Question,
		MealName: st.MealName,
		Loading:  st.Loading,
		Error:    st.Err,
	}
	for _, t := range st.Turns {
		out.Turns = append(out.Turns, turnJSON{Content: t.Content, FromUser: t.FromUser, TimestampMillis: t.TimestampMillis})
	}
	for _, c := range st.Components {
		out.Components = append(out.Components, componentToJSON(c))
	}
	return out
}

// handleStartDetection accepts a multipart photo upload, stores it, and runs
// the first detection turn. The response is the resulting session state.
func (s *Server) handleStartDetection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing photo field")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	key, err := s.photos.Save(r.Context(), "meal", mimeType, file)
	if err != nil {
		s.logger.Error("failed to store photo", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	path, err := s.photos.Path(key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to resolve photo path")
		return
	}

	if err := s.session.Start(r.Context(), path); err != nil {
		switch {
		case errors.Is(err, detection.ErrBusy):
			s.writeError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, inference.ErrNoAPIKey):
			// Surfaced through the state as well; fall through to return it.
		default:
			s.logger.Error("failed to start detection", "error", err)
		}
	}

	s.setPhotoKey(key)
	s.writeJSON(w, http.StatusOK, s.stateJSON(s.session.State()))
}

func (s *Server) handleDetectionState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stateJSON(s.session.State()))
}

type followUpRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.session.SendFollowUp(r.Context(), req.Text); err != nil {
		switch {
		case errors.Is(err, detection.ErrBlankMessage):
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, detection.ErrBusy), errors.Is(err, detection.ErrNotStarted):
			s.writeError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, inference.ErrNoAPIKey):
			// Reflected in state; return it below.
		default:
			s.logger.Error("failed to send follow-up", "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, s.stateJSON(s.session.State()))
}

func (s *Server) handleRetake(w http.ResponseWriter, r *http.Request) {
	s.session.Retake(r.Context())
	s.setPhotoKey("")
	s.writeJSON(w, http.StatusOK, s.stateJSON(s.session.State()))
}

type confirmRequest struct {
	Description string `json:"description"`
}

// handleConfirm saves the currently detected components as a meal. The
// conversation record is kept as a historical log.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st := s.session.State()
	if len(st.Components) == 0 {
		s.writeError(w, http.StatusConflict, "no detected components to confirm")
		return
	}

	description := req.Description
	if description == "" {
		description = st.MealName
	}

	meal, err := s.meals.SaveConfirmed(r.Context(), s.currentPhotoKey(), description, st.Components)
	if err != nil {
		s.logger.Error("failed to save meal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save meal")
		return
	}

	summary, err := s.meals.GetMeal(r.Context(), meal.ID)
	if err != nil || summary == nil {
		s.logger.Error("failed to reload saved meal", "meal_id", meal.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load saved meal")
		return
	}

	s.writeJSON(w, http.StatusCreated, mealToJSON(summary))
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	rc, mimeType, err := s.photos.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream photo", "key", key, "error", err)
	}
}
