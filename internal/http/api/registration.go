package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/registration"
	"example.com/amadvs/internal/session"
)

// maxUploadBody leaves room for the multipart envelope around the file.
const (
	maxPhotoUpload = 5 << 20
	maxUploadBody  = maxPhotoUpload + 1<<20
)

func (s *Service) workflow(w http.ResponseWriter, r *http.Request) (*session.Session, *registration.Workflow, bool) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return nil, nil, false
	}
	wf, ok := sess.Workflow()
	if !ok {
		httpError(w, http.StatusNotFound, "registration_not_started")
		return nil, nil, false
	}
	return sess, wf, true
}

// workflowError writes the response for an error returned by a Workflow.
func (s *Service) workflowError(w http.ResponseWriter, sess *session.Session, err error) {
	var inc *registration.IncompleteError
	switch {
	case errors.As(err, &inc):
		jsonStatus(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "step_incomplete",
			"step":    inc.Step,
			"missing": inc.Missing,
			"invalid": inc.Invalid,
		})
	case errors.Is(err, registration.ErrPasswordMismatch):
		httpError(w, http.StatusUnprocessableEntity, registration.MsgPasswordMismatch)
	case errors.Is(err, registration.ErrUnknownField),
		errors.Is(err, registration.ErrStudentKind),
		errors.Is(err, registration.ErrNotStudent),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrRoleNotRegisterable):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registration.ErrNoNextStep),
		errors.Is(err, registration.ErrNoPrevStep),
		errors.Is(err, registration.ErrNotFinalStep):
		httpError(w, http.StatusConflict, err.Error())
	default:
		// already logged by the workflow
		snap := sess.Store.Snapshot()
		jsonStatus(w, storeStatus(err), map[string]any{"error": snap.Error, "session": snap})
	}
}

func (s *Service) StartRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	role, err := registration.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	wf, err := registration.New(role, s.logger)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.SetWorkflow(wf)
	jsonStatus(w, http.StatusCreated, wf.View())
}

func (s *Service) GetRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	_, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}
	jsonOK(w, wf.View())
}

func (s *Service) PatchRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	sess, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}

	var in struct {
		Role        string            `json:"role"`
		StudentKind string            `json:"studentKind"`
		Fields      map[string]string `json:"fields"`
	}
	if err := decode(w, r, &in); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if in.Role != "" {
		role, err := registration.ParseRole(in.Role)
		if err == nil {
			err = wf.SetRole(role)
		}
		if err != nil {
			s.workflowError(w, sess, err)
			return
		}
	}
	if in.StudentKind != "" {
		if err := wf.ChooseStudentKind(registration.StudentKind(in.StudentKind)); err != nil {
			s.workflowError(w, sess, err)
			return
		}
	}
	if err := wf.SetFields(in.Fields); err != nil {
		s.workflowError(w, sess, err)
		return
	}
	jsonOK(w, wf.View())
}

func (s *Service) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	_, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}

	if r.ContentLength > maxUploadBody {
		httpError(w, http.StatusRequestEntityTooLarge, registration.ErrPhotoTooLarge.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	f, _, err := r.FormFile("photo")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		httpError(w, http.StatusRequestEntityTooLarge, registration.ErrPhotoTooLarge.Error())
		return
	case err != nil:
		httpError(w, http.StatusBadRequest, "photo_required")
		return
	}
	defer f.Close()

	ref, err := s.photos.Save(r.Context(), f)
	switch {
	case errors.Is(err, registration.ErrNotImage):
		httpError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case errors.Is(err, registration.ErrPhotoTooLarge):
		httpError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		s.logger.Error("photo upload failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal")
		return
	}

	wf.AttachPhoto(ref)
	jsonOK(w, wf.View())
}

func (s *Service) NextStepHandler(w http.ResponseWriter, r *http.Request) {
	sess, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}
	if err := wf.Next(); err != nil {
		s.workflowError(w, sess, err)
		return
	}
	jsonOK(w, wf.View())
}

func (s *Service) PrevStepHandler(w http.ResponseWriter, r *http.Request) {
	sess, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}
	if err := wf.Back(); err != nil {
		s.workflowError(w, sess, err)
		return
	}
	jsonOK(w, wf.View())
}

type submitResponse struct {
	Outcome registration.Outcome `json:"outcome"`
	Session session.Snapshot     `json:"session"`
	Tokens  *tokenPair           `json:"tokens,omitempty"`
}

func (s *Service) SubmitRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	sess, wf, ok := s.workflow(w, r)
	if !ok {
		return
	}

	out, err := wf.Submit(r.Context(), sess.Store)
	if err != nil {
		s.workflowError(w, sess, err)
		return
	}
	sess.SetWorkflow(nil)

	resp := submitResponse{Outcome: out, Session: sess.Store.Snapshot()}
	if resp.Session.User != nil {
		tokens, err := s.issue(resp.Session.User)
		if err != nil {
			s.logger.Error("token signing failed", zap.Error(err))
		} else {
			resp.Tokens = tokens
		}
	}
	jsonStatus(w, http.StatusCreated, resp)
}

func (s *Service) PhotoHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.photos.Get(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "photo_not_found")
		return
	}
	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(p.Data)
}
