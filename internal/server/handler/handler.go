package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"mokjang/internal/api"
	"mokjang/internal/attendance"
	"mokjang/internal/platform/metrics"
	"mokjang/internal/server/hub"
	"mokjang/pkg/platform/sentinel"
)

// Store is the authoritative roster the handlers read and write.
type Store interface {
	ListPeople(ctx context.Context) ([]attendance.Person, error)
	CreatePerson(ctx context.Context, name, group string) (attendance.Person, error)
	UpdatePerson(ctx context.Context, id int64, name, group string) (attendance.Person, error)
	DeletePerson(ctx context.Context, id int64) error
	SetFact(ctx context.Context, fact attendance.Fact) error
	PersonFacts(ctx context.Context, id int64, startDay, endDay string) ([]attendance.Fact, error)
}

// Handler serves the REST API and the push subscription endpoint.
type Handler struct {
	logger   *slog.Logger
	store    Store
	hub      *hub.Hub
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// New creates the backend handler.
func New(store Store, h *hub.Hub, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		store:   store,
		hub:     h,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients connect from arbitrary origins; this backend has no
			// cookie-based auth to protect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register registers the API and push routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/attendance/v1", func(r chi.Router) {
		r.Get("/attendance/{date}", h.handleDayRoster)
		r.Get("/attendance/{date}/stats", h.handleDayStats)
		r.Put("/attendance", h.handleUpdateAttendance)

		r.Get("/students", h.handleListStudents)
		r.Post("/students", h.handleCreateStudent)
		r.Put("/students/{id}", h.handleUpdateStudent)
		r.Delete("/students/{id}", h.handleDeleteStudent)
		r.Get("/students/{id}/attendance", h.handleStudentAttendance)

		r.Get("/mokjang", h.handleListMokjangs)
	})
	r.Get("/ws", h.handleSubscribe)
}

// handleDayRoster returns every member with their flag pair for one day.
// Members without a record for the day appear with both flags false.
func (h *Handler) handleDayRoster(w http.ResponseWriter, r *http.Request) {
	day, err := attendance.NormalizeDay(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.internalError(w, r, "listing roster", err)
		return
	}
	students := make([]api.Student, 0, len(people))
	for _, p := range people {
		students = append(students, api.FromPerson(p, day))
	}
	h.writeData(w, http.StatusOK, students)
}

func (h *Handler) handleDayStats(w http.ResponseWriter, r *http.Request) {
	day, err := attendance.NormalizeDay(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.internalError(w, r, "listing roster", err)
		return
	}

	overall := attendance.Summarize(people, day)
	stats := api.Stats{
		Overall: api.OverallStats{
			TotalStudents:  overall.Total,
			WorshipOnly:    overall.WorshipOnly,
			MokjangOnly:    overall.MokjangOnly,
			Both:           overall.Both,
			Attended:       overall.Total - overall.Absent,
			Absent:         overall.Absent,
			AttendanceRate: overall.Rate,
		},
		ByMokjang: []api.MokjangStats{},
	}
	for _, g := range attendance.SummarizeByGroup(people, day) {
		stats.ByMokjang = append(stats.ByMokjang, api.MokjangStats{
			Mokjang:        g.Group,
			Total:          g.Total,
			WorshipOnly:    g.WorshipOnly,
			MokjangOnly:    g.MokjangOnly,
			Both:           g.Both,
			Absent:         g.Absent,
			AttendanceRate: g.Rate,
		})
	}
	h.writeData(w, http.StatusOK, stats)
}

// handleUpdateAttendance applies the authoritative write and fans the
// resulting values out to every push subscriber, the writer included.
func (h *Handler) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := attendance.NormalizeDay(req.AttendanceDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid attendance date")
		return
	}

	fact := attendance.Fact{
		PersonID: req.StudentID,
		Day:      day,
		Worship:  req.Worship,
		Mokjang:  req.Mokjang,
	}
	if err := h.store.SetFact(r.Context(), fact); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "student not found")
			return
		}
		h.internalError(w, r, "updating attendance", err)
		return
	}

	env, err := api.NewAttendanceUpdated(fact)
	if err != nil {
		h.internalError(w, r, "encoding broadcast", err)
		return
	}
	h.hub.Broadcast(env)

	h.writeData(w, http.StatusOK, api.AttendanceUpdate{
		StudentID:      fact.PersonID,
		AttendanceDate: fact.Day,
		Worship:        fact.Worship,
		Mokjang:        fact.Mokjang,
	})
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.internalError(w, r, "listing students", err)
		return
	}
	q := r.URL.Query()
	people = attendance.Filter(people, q.Get("search"), q.Get("mokjang"))
	if q.Get("sort") == "name" {
		people = attendance.SortByName(people)
	}
	students := make([]api.Student, 0, len(people))
	for _, p := range people {
		students = append(students, api.FromPerson(p, ""))
	}
	h.writeData(w, http.StatusOK, students)
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.CreatePerson(r.Context(), req.Name, req.Mokjang)
	if err != nil {
		h.internalError(w, r, "creating student", err)
		return
	}
	h.logger.Info("student created", "id", p.ID, "name", p.Name, "mokjang", p.Group)
	h.writeData(w, http.StatusCreated, api.FromPerson(p, ""))
}

func (h *Handler) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.UpdatePerson(r.Context(), id, req.Name, req.Mokjang)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "student not found")
			return
		}
		h.internalError(w, r, "updating student", err)
		return
	}
	h.writeData(w, http.StatusOK, api.FromPerson(p, ""))
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeletePerson(r.Context(), id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "student not found")
			return
		}
		h.internalError(w, r, "deleting student", err)
		return
	}
	h.logger.Info("student deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	startDay, endDay := q.Get("start_date"), q.Get("end_date")
	var err error
	if startDay != "" {
		if startDay, err = attendance.NormalizeDay(startDay); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
	}
	if endDay != "" {
		if endDay, err = attendance.NormalizeDay(endDay); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
	}
	facts, err := h.store.PersonFacts(r.Context(), id, startDay, endDay)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "student not found")
			return
		}
		h.internalError(w, r, "fetching attendance", err)
		return
	}
	records := make([]api.StudentAttendance, 0, len(facts))
	for _, f := range facts {
		records = append(records, api.StudentAttendance{
			AttendanceDate: f.Day,
			Worship:        f.Worship,
			Mokjang:        f.Mokjang,
		})
	}
	h.writeData(w, http.StatusOK, records)
}

func (h *Handler) handleListMokjangs(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.internalError(w, r, "listing mokjangs", err)
		return
	}
	counts := make(map[string]int, 4)
	for _, p := range people {
		counts[p.Group]++
	}
	infos := make([]api.MokjangInfo, 0, len(counts))
	for _, name := range attendance.GroupNames(people) {
		infos = append(infos, api.MokjangInfo{Mokjang: name, StudentCount: counts[name]})
	}
	h.writeData(w, http.StatusOK, infos)
}

// handleSubscribe upgrades the connection and hands it to the hub. The
// socket carries updates server-to-client only.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Anonymous"
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	h.hub.Register(conn, name)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid student id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		h.logger.Error("encoding response", "error", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.ErrorContext(r.Context(), action, "error", err.Error())
	h.writeError(w, http.StatusInternalServerError, "internal error")
}
