package registration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
)

const (
	MsgPasswordMismatch = "As senhas não coincidem"
	MsgStudentDone      = "Cadastro realizado com sucesso! Seu cadastro será avaliado pelos maestros e diretores."
	MsgOtherDone        = "Cadastro realizado com sucesso! Aguarde a aprovação do seu cadastro."

	RedirectStudentDone = "/registration-success"
	RedirectOtherDone   = "/"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrStepIncomplete   = errors.New("step incomplete")
	ErrNoNextStep       = errors.New("already at the last step")
	ErrNoPrevStep       = errors.New("already at the first step")
	ErrNotFinalStep     = errors.New("submit is only allowed at the last step")
	ErrUnknownField     = errors.New("unknown field")
	ErrNotStudent       = errors.New("only students choose new or returning")
	ErrStudentKind      = errors.New("student kind must be new or returning")
)

// IncompleteError lists what keeps a step from advancing.
type IncompleteError struct {
	Step    Step
	Missing []string
	Invalid []string
}

func (e *IncompleteError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("step %s: %s", e.Step, strings.Join(parts, "; "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrStepIncomplete }

// Registrar creates the account. A returned user with an ID means the
// account exists even when err is set; the error then only reports that the
// caller's session moved on meanwhile.
type Registrar interface {
	Register(ctx context.Context, data core.User, password string, role core.Role) (core.User, error)
}

type Outcome struct {
	User     core.User `json:"user"`
	Message  string    `json:"message"`
	Redirect string    `json:"redirect"`
}

// View is what a client renders. Passwords never leave the draft.
type View struct {
	Role        core.Role         `json:"role"`
	StudentKind StudentKind       `json:"studentKind,omitempty"`
	Step        Step              `json:"step"`
	StepIndex   int               `json:"stepIndex"`
	Steps       []Step            `json:"steps"`
	Fields      map[string]string `json:"fields"`
	Missing     []string          `json:"missing"`
	CanSubmit   bool              `json:"canSubmit"`
}

// ParseRole reads the ?role= preselection. Empty means student.
func ParseRole(q string) (core.Role, error) {
	if q == "" {
		return core.RoleStudent, nil
	}
	r := core.Role(q)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidRole, q)
	}
	if !r.SelfRegisterable() {
		return "", core.ErrRoleNotRegisterable
	}
	return r, nil
}

// Workflow drives one registration form. The draft lives only here and is
// dropped after a successful submit.
type Workflow struct {
	mu     sync.Mutex
	role   core.Role
	kind   StudentKind
	idx    int
	draft  map[string]string
	logger *zap.Logger
}

func New(role core.Role, logger *zap.Logger) (*Workflow, error) {
	if !role.SelfRegisterable() {
		return nil, core.ErrRoleNotRegisterable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		role:   role,
		kind:   NewStudent,
		draft:  make(map[string]string),
		logger: logger,
	}, nil
}

// SetRole switches the form and goes back to its first step. Values typed
// so far are kept.
func (w *Workflow) SetRole(role core.Role) error {
	if !role.SelfRegisterable() {
		return core.ErrRoleNotRegisterable
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if role != w.role {
		w.role = role
		w.idx = 0
	}
	return nil
}

func (w *Workflow) ChooseStudentKind(kind StudentKind) error {
	if !kind.Valid() {
		return ErrStudentKind
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.role != core.RoleStudent {
		return ErrNotStudent
	}
	w.kind = kind
	return nil
}

func (w *Workflow) Set(field, value string) error {
	if !knownFields[field] {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if secretField(field) {
		w.draft[field] = value
	} else {
		w.draft[field] = strings.TrimSpace(value)
	}
	return nil
}

// SetFields applies all values or none.
func (w *Workflow) SetFields(fields map[string]string) error {
	for f := range fields {
		if !knownFields[f] {
			return fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	for f, v := range fields {
		if err := w.Set(f, v); err != nil {
			return err
		}
	}
	return nil
}

// AttachPhoto stores the reference returned by a PhotoStore.
func (w *Workflow) AttachPhoto(ref string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft[FieldPhoto] = ref
}

func (w *Workflow) current() Step {
	return Steps(w.role)[w.idx]
}

func (w *Workflow) last() bool {
	return w.idx == len(Steps(w.role))-1
}

func (w *Workflow) Current() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current()
}

func (w *Workflow) Role() core.Role {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.role
}

func (w *Workflow) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last() {
		return ErrNoNextStep
	}
	if err := w.guard(w.current()); err != nil {
		return err
	}
	w.idx++
	return nil
}

func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.idx == 0 {
		return ErrNoPrevStep
	}
	w.idx--
	return nil
}

func (w *Workflow) guard(step Step) error {
	missing, invalid := checkStep(step, w.kind, w.draft)
	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}
	return &IncompleteError{Step: step, Missing: missing, Invalid: invalid}
}

// Submit validates the whole draft and hands one payload to reg. A password
// mismatch never reaches reg. On failure the draft is kept as is.
func (w *Workflow) Submit(ctx context.Context, reg Registrar) (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.last() {
		return Outcome{}, ErrNotFinalStep
	}
	for _, step := range Steps(w.role) {
		if err := w.guard(step); err != nil {
			return Outcome{}, err
		}
	}
	pass := w.draft[FieldPassword]
	if pass != w.draft[FieldConfirmPassword] {
		return Outcome{}, ErrPasswordMismatch
	}

	p, err := BuildPayload(w.role, w.kind, w.draft)
	if err != nil {
		return Outcome{}, err
	}

	u, err := reg.Register(ctx, p.User(), pass, p.Role())
	if err != nil && u.ID == "" {
		w.logger.Error("Registration error", zap.String("role", string(w.role)), zap.Error(err))
		return Outcome{}, err
	}
	if err != nil {
		w.logger.Info("Registered after session change", zap.String("userID", u.ID), zap.Error(err))
	}

	w.draft = make(map[string]string)
	w.idx = 0
	w.kind = NewStudent

	out := Outcome{User: u, Message: MsgOtherDone, Redirect: RedirectOtherDone}
	if p.Role() == core.RoleStudent {
		out.Message, out.Redirect = MsgStudentDone, RedirectStudentDone
	}
	return out, nil
}

func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := make(map[string]string, len(w.draft))
	for f, v := range w.draft {
		if !secretField(f) {
			fields[f] = v
		}
	}
	missing, _ := checkStep(w.current(), w.kind, w.draft)
	sort.Strings(missing)

	v := View{
		Role:      w.role,
		Step:      w.current(),
		StepIndex: w.idx,
		Steps:     Steps(w.role),
		Fields:    fields,
		Missing:   missing,
	}
	if w.role == core.RoleStudent {
		v.StudentKind = w.kind
	}
	if w.last() {
		v.CanSubmit = w.guard(w.current()) == nil
	}
	return v
}
