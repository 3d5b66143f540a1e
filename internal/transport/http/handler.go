package http

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"

	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/domain"
)

// Handler exposes the grading use cases as JSON endpoints. Error detail stays
// in the server log; clients only see the success flag and a Spanish message.
type Handler struct {
	service   *app.GradingService
	adminPage string
}

func NewHandler(service *app.GradingService, adminPage string) *Handler {
	return &Handler{service: service, adminPage: adminPage}
}

// Register wires every route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/questions", h.Questions)
	mux.HandleFunc("/submit", h.Submit)
	mux.HandleFunc("/check-results", h.CheckResults)
	mux.HandleFunc("/view-responses", h.ViewResponses)
	mux.HandleFunc("/update-feedback", h.UpdateFeedback)
	mux.HandleFunc("/reset-quiz", h.ResetQuiz)
	mux.HandleFunc("/admin", h.Admin)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type submitRequest struct {
	Nombre         string            `json:"nombre"`
	Apellido       string            `json:"apellido"`
	Correo         string            `json:"correo"`
	Answers        map[string]string `json:"answers"`
	Type           string            `json:"type"`
	Justifications map[string]string `json:"justifications"`
	IP             string            `json:"ip"`
}

type resultsResponse struct {
	Success        bool                           `json:"success"`
	Corrected      bool                           `json:"corrected"`
	Score          int                            `json:"score"`
	Total          int                            `json:"total"`
	Answers        map[string]domain.AnswerDetail `json:"answers"`
	Justifications map[string]string              `json:"justifications"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type responsesResponse struct {
	Success   bool   `json:"success"`
	Responses string `json:"responses"`
}

type updateFeedbackRequest struct {
	Password       string `json:"password"`
	StudentEmail   string `json:"studentEmail"`
	QuestionNumber string `json:"questionNumber"`
	Score          int    `json:"score"`
	Comment        string `json:"comment"`
}

func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	questions, err := h.service.Questions(r.Context())
	if err != nil {
		log.Printf("load questions: %v", err)
		fail(w, http.StatusInternalServerError, "Error al cargar preguntas.")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	ip := req.IP
	if ip == "" {
		ip = clientIP(r)
	}

	err := h.service.Submit(r.Context(), app.SubmissionInput{
		Nombre:         req.Nombre,
		Apellido:       req.Apellido,
		Correo:         req.Correo,
		IP:             ip,
		Type:           req.Type,
		Answers:        req.Answers,
		Justifications: req.Justifications,
	})
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		fail(w, http.StatusBadRequest, "Por favor completa los campos de nombre, apellido y correo.")
		return
	case errors.Is(err, domain.ErrDuplicateSubmission):
		fail(w, http.StatusBadRequest, "Este correo o dispositivo ya ha enviado el cuestionario.")
		return
	case err != nil:
		log.Printf("submit: %v", err)
		fail(w, http.StatusInternalServerError, "Error al procesar el envío. Por favor intenta de nuevo.")
		return
	}

	noCache(w)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Cuestionario enviado. La corrección está en proceso."})
}

func (h *Handler) CheckResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correo := r.URL.Query().Get("correo")
	view, err := h.service.CheckResults(r.Context(), correo)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		// Soft fail: an unknown email is not an error status.
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "No se encontró el cuestionario."})
		return
	case err != nil:
		log.Printf("check results: %v", err)
		fail(w, http.StatusInternalServerError, "Error al consultar resultados.")
		return
	}

	noCache(w)
	writeJSON(w, http.StatusOK, resultsResponse{
		Success:        true,
		Corrected:      view.Corrected,
		Score:          view.Score,
		Total:          view.Total,
		Answers:        view.Answers,
		Justifications: view.Justifications,
	})
}

func (h *Handler) ViewResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	responses, err := h.service.ListResponses(r.Context(), req.Password)
	switch {
	case errors.Is(err, domain.ErrBadPassword):
		fail(w, http.StatusUnauthorized, "Clave incorrecta.")
		return
	case err != nil:
		log.Printf("view responses: %v", err)
		fail(w, http.StatusInternalServerError, "Error al leer las respuestas. Por favor intenta de nuevo.")
		return
	}

	noCache(w)
	writeJSON(w, http.StatusOK, responsesResponse{Success: true, Responses: responses})
}

func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}
	if !domain.ValidOverrideMark(req.Score) {
		fail(w, http.StatusBadRequest, "Puntuación inválida.")
		return
	}

	err := h.service.UpdateFeedback(r.Context(), req.Password, req.StudentEmail, req.QuestionNumber, domain.OverrideMark(req.Score), req.Comment)
	switch {
	case errors.Is(err, domain.ErrBadPassword):
		fail(w, http.StatusUnauthorized, "Clave incorrecta.")
		return
	case errors.Is(err, domain.ErrRecordNotFound):
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "No se encontró el cuestionario."})
		return
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "No se encontró la pregunta."})
		return
	case err != nil:
		log.Printf("update feedback: %v", err)
		fail(w, http.StatusInternalServerError, "Error al actualizar corrección.")
		return
	}

	noCache(w)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Corrección actualizada."})
}

func (h *Handler) ResetQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	err := h.service.Reset(r.Context(), req.Password)
	switch {
	case errors.Is(err, domain.ErrBadPassword):
		fail(w, http.StatusUnauthorized, "Clave incorrecta.")
		return
	case err != nil:
		log.Printf("reset quiz: %v", err)
		fail(w, http.StatusInternalServerError, "Error al resetear el cuestionario. Por favor intenta de nuevo.")
		return
	}

	noCache(w)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Cuestionario reseteado correctamente."})
}

func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	noCache(w)
	http.ServeFile(w, r, h.adminPage)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// clientIP extracts the host part of the remote address as a fallback when the
// client did not report its own IP in the submission body.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
