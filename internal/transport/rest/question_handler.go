package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// QuestionHandler handles question CRUD, detail, and submission.
type QuestionHandler struct {
	questions ports.QuestionStore
	batches   ports.BatchStore
	submitter *application.Submitter
}

// NewQuestionHandler creates a question handler.
func NewQuestionHandler(questions ports.QuestionStore, batches ports.BatchStore, submitter *application.Submitter) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		batches:   batches,
		submitter: submitter,
	}
}

// QuestionRequest is the request body for creating or updating a
// question. Context arrives as a JSON object whose values may be scalars
// or lists; choices as a list of labels with blanks stripped.
type QuestionRequest struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
	Choices  []string       `json:"choices"`
	Archived bool           `json:"archived"`
}

// QuestionDetail is a question plus its computed summary fields.
type QuestionDetail struct {
	*domain.Question

	VariationCount int `json:"variationCount"`
	PairCount      int `json:"pairCount"`
	UnitCount      int `json:"unitCount"`

	Batches []*domain.Batch `json:"batches,omitempty"`
}

func (h *QuestionHandler) buildQuestion(req QuestionRequest, into *domain.Question) error {
	parsedContext, err := domain.ParseContext(req.Context)
	if err != nil {
		return err
	}

	into.Template = req.Template
	into.Context = parsedContext
	into.Choices = domain.ParseChoices(req.Choices)
	into.Archived = req.Archived
	return into.Validate()
}

func detailOf(q *domain.Question, batches []*domain.Batch) *QuestionDetail {
	variations := len(q.ContextCombinations())
	pairs := len(q.ChoicePairs())
	return &QuestionDetail{
		Question:       q,
		VariationCount: variations,
		PairCount:      pairs,
		UnitCount:      variations * pairs,
		Batches:        batches,
	}
}

// Create handles POST /v1/questions.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q := &domain.Question{UUID: uuid.New()}
	if err := h.buildQuestion(req, q); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.questions.Create(r.Context(), q); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// List handles GET /v1/questions. Archived questions are included only
// with ?include_archived=true.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	questions, err := h.questions.List(r.Context(), includeArchived)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if questions == nil {
		questions = []*domain.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

// Get handles GET /v1/questions/{uuid}, returning the question with its
// computed summary and batch list.
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question uuid")
		return
	}

	q, err := h.questions.GetByUUID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	batches, err := h.batches.ListByQuestion(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailOf(q, batches))
}

// Update handles PUT /v1/questions/{uuid}.
func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question uuid")
		return
	}

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.questions.GetByUUID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.buildQuestion(req, q); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.questions.Update(r.Context(), q); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Submit handles POST /v1/questions/{uuid}/submit, expanding the question
// into request units and submitting them as provider batches.
func (h *QuestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question uuid")
		return
	}

	runID, err := h.submitter.Submit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID.String()})
}
