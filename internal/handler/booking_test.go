package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careerbridge/slot-booking/internal/model"
	"github.com/careerbridge/slot-booking/internal/repository"
	"github.com/careerbridge/slot-booking/internal/service"
)

// stubStore is a minimal in-memory service.SlotStore for handler tests.
// Save always succeeds after a version check, so the handlers exercise the
// same error mapping they would against the real repository.
type stubStore struct {
	slots map[string]*model.InterviewSlot
}

func newStubStore(slots ...*model.InterviewSlot) *stubStore {
	st := &stubStore{slots: make(map[string]*model.InterviewSlot)}
	for _, s := range slots {
		st.slots[s.ID] = s
	}
	return st
}

func (st *stubStore) GetByID(_ context.Context, id string) (*model.InterviewSlot, error) {
	s, ok := st.slots[id]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *s
	cp.BookedStudents = append([]model.Booking(nil), s.BookedStudents...)
	return &cp, nil
}

func (st *stubStore) FindByStudent(_ context.Context, studentID string) ([]model.InterviewSlot, error) {
	var out []model.InterviewSlot
	for _, s := range st.slots {
		if s.HasStudent(studentID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (st *stubStore) List(_ context.Context, f repository.SlotFilter) ([]model.InterviewSlot, error) {
	var out []model.InterviewSlot
	for _, s := range st.slots {
		if f.Date != "" && s.Date != f.Date {
			continue
		}
		if f.AvailableOnly && s.IsFull() {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (st *stubStore) Create(_ context.Context, s *model.InterviewSlot) error {
	st.slots[s.ID] = s
	return nil
}

func (st *stubStore) Save(_ context.Context, s *model.InterviewSlot) error {
	cur, ok := st.slots[s.ID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	if cur.Version != s.Version {
		return repository.ErrVersionConflict
	}
	s.Version++
	cp := *s
	st.slots[s.ID] = &cp
	return nil
}

func (st *stubStore) Delete(_ context.Context, id string) error {
	if _, ok := st.slots[id]; !ok {
		return repository.ErrSlotNotFound
	}
	delete(st.slots, id)
	return nil
}

func testSlot(id string, capacity int, students ...string) *model.InterviewSlot {
	s := &model.InterviewSlot{
		ID:              id,
		Company:         "Acme",
		Position:        "Backend Engineer",
		Location:        "Room 4",
		Date:            "2026-03-01",
		StartTime:       "10:00",
		EndTime:         "10:30",
		DurationMinutes: 30,
		MaxCapacity:     capacity,
		BookedStudents:  []model.Booking{},
		Status:          model.StatusActive,
	}
	for _, stu := range students {
		s.BookedStudents = append(s.BookedStudents, model.Booking{
			StudentID: stu,
			BookedAt:  time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
		})
	}
	s.Status = model.DeriveStatus(s)
	return s
}

func newBookingTestHandler(store *stubStore) *BookingHandler {
	svc := service.NewBookingService(store, zap.NewNop())
	return NewBookingHandler(svc, zap.NewNop(), nil)
}

// newRequestContext builds an echo context with an authenticated user, the
// way the JWT middleware leaves it.
func newRequestContext(method, target, body, userID string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBookSuccess(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 2))
	h := newBookingTestHandler(store)

	c, rec := newRequestContext(http.MethodPost, "/v1/slots/slot-1/book", "", "stu-1", "id", "slot-1")
	require.NoError(t, h.Book(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "slot booked successfully", body["message"])
	slot := body["slot"].(map[string]any)
	assert.Equal(t, "slot-1", slot["id"])
	assert.Len(t, slot["bookedStudents"], 1)
}

func TestBookErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		slot       *model.InterviewSlot
		extra      []*model.InterviewSlot
		student    string
		wantStatus int
		wantError  string
	}{
		{
			name:       "slot full",
			slot:       testSlot("slot-1", 1, "stu-other"),
			student:    "stu-1",
			wantStatus: http.StatusConflict,
			wantError:  "this slot is already full",
		},
		{
			name:       "duplicate booking",
			slot:       testSlot("slot-1", 2, "stu-1"),
			student:    "stu-1",
			wantStatus: http.StatusConflict,
			wantError:  "you have already booked this slot",
		},
		{
			name: "quota exceeded",
			slot: func() *model.InterviewSlot {
				s := testSlot("slot-1", 1)
				s.Company = "Gamma"
				s.Date = "2026-03-03"
				return s
			}(),
			extra: []*model.InterviewSlot{
				func() *model.InterviewSlot {
					s := testSlot("slot-2", 1, "stu-1")
					s.Company = "Beta"
					s.Date = "2026-03-02"
					return s
				}(),
				func() *model.InterviewSlot {
					s := testSlot("slot-3", 1, "stu-1")
					s.Company = "Delta"
					s.Date = "2026-03-04"
					return s
				}(),
			},
			student:    "stu-1",
			wantStatus: http.StatusConflict,
			wantError:  "you have already booked the maximum of 2 interview slots",
		},
		{
			name: "time conflict",
			slot: func() *model.InterviewSlot {
				s := testSlot("slot-1", 1)
				s.Company = "Beta"
				s.StartTime = "10:15"
				return s
			}(),
			extra: []*model.InterviewSlot{
				testSlot("slot-2", 1, "stu-1"),
			},
			student:    "stu-1",
			wantStatus: http.StatusConflict,
			wantError:  "you already have an interview scheduled at this time",
		},
		{
			name: "duplicate company",
			slot: func() *model.InterviewSlot {
				s := testSlot("slot-1", 1)
				s.Date = "2026-03-05"
				return s
			}(),
			extra: []*model.InterviewSlot{
				testSlot("slot-2", 1, "stu-1"),
			},
			student:    "stu-1",
			wantStatus: http.StatusConflict,
			wantError:  "you already have an interview slot booked with this company",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore(append(tc.extra, tc.slot)...)
			h := newBookingTestHandler(store)

			c, rec := newRequestContext(http.MethodPost, "/v1/slots/"+tc.slot.ID+"/book", "", tc.student, "id", tc.slot.ID)
			require.NoError(t, h.Book(c))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantError, decodeBody(t, rec)["error"])
		})
	}
}

func TestBookSlotNotFound(t *testing.T) {
	h := newBookingTestHandler(newStubStore())

	c, rec := newRequestContext(http.MethodPost, "/v1/slots/missing/book", "", "stu-1", "id", "missing")
	require.NoError(t, h.Book(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "slot not found", decodeBody(t, rec)["error"])
}

func TestBookUnauthenticated(t *testing.T) {
	h := newBookingTestHandler(newStubStore(testSlot("slot-1", 1)))

	c, rec := newRequestContext(http.MethodPost, "/v1/slots/slot-1/book", "", "", "id", "slot-1")
	require.NoError(t, h.Book(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelBooking(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 1, "stu-1"))
	h := newBookingTestHandler(store)

	c, rec := newRequestContext(http.MethodDelete, "/v1/slots/slot-1/booking", "", "stu-1", "id", "slot-1")
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The slot reopened.
	assert.Equal(t, model.StatusActive, store.slots["slot-1"].Status)
	assert.Empty(t, store.slots["slot-1"].BookedStudents)

	// Cancelling again: the booking no longer exists.
	c, rec = newRequestContext(http.MethodDelete, "/v1/slots/slot-1/booking", "", "stu-1", "id", "slot-1")
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking not found", decodeBody(t, rec)["error"])

	c, rec = newRequestContext(http.MethodDelete, "/v1/slots/missing/booking", "", "stu-1", "id", "missing")
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "slot not found", decodeBody(t, rec)["error"])
}

func TestMyBookings(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 1, "stu-1"), testSlot("slot-2", 1, "stu-2"))
	h := newBookingTestHandler(store)

	c, rec := newRequestContext(http.MethodGet, "/v1/my-bookings", "", "stu-1")
	require.NoError(t, h.MyBookings(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "slot-1", items[0].(map[string]any)["id"])
}

func TestCreateSlot(t *testing.T) {
	store := newStubStore()
	h := NewSlotHandler(service.NewBookingService(store, zap.NewNop()))

	body := `{"company":"Acme","position":"Backend Engineer","location":"Room 4",` +
		`"date":"2026-03-01","startTime":"10:00","endTime":"10:30","maxCapacity":2}`
	c, rec := newRequestContext(http.MethodPost, "/v1/slots", body, "admin-1")
	require.NoError(t, h.CreateSlot(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, "Acme", created["company"])
	assert.Equal(t, "admin-1", created["createdBy"])
	assert.Equal(t, model.StatusActive, created["status"])
	// The optimistic-lock version never leaks into responses.
	_, exposed := created["version"]
	assert.False(t, exposed)
}

func TestCreateSlotValidationError(t *testing.T) {
	h := NewSlotHandler(service.NewBookingService(newStubStore(), zap.NewNop()))

	body := `{"company":"Acme","position":"p","location":"l","date":"not-a-date","startTime":"10:00","endTime":"10:30"}`
	c, rec := newRequestContext(http.MethodPost, "/v1/slots", body, "admin-1")
	require.NoError(t, h.CreateSlot(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSlotCapacityConflict(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 2, "stu-1", "stu-2"))
	h := NewSlotHandler(service.NewBookingService(store, zap.NewNop()))

	c, rec := newRequestContext(http.MethodPatch, "/v1/slots/slot-1", `{"maxCapacity":1}`, "admin-1", "id", "slot-1")
	require.NoError(t, h.UpdateSlot(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newRequestContext(http.MethodPatch, "/v1/slots/slot-1", `{"maxCapacity":3}`, "admin-1", "id", "slot-1")
	require.NoError(t, h.UpdateSlot(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusActive, decodeBody(t, rec)["status"])
}

func TestDeleteSlotGuards(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 1, "stu-1"), testSlot("slot-2", 1))
	h := NewSlotHandler(service.NewBookingService(store, zap.NewNop()))

	c, rec := newRequestContext(http.MethodDelete, "/v1/slots/slot-1", "", "admin-1", "id", "slot-1")
	require.NoError(t, h.DeleteSlot(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newRequestContext(http.MethodDelete, "/v1/slots/slot-2", "", "admin-1", "id", "slot-2")
	require.NoError(t, h.DeleteSlot(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newRequestContext(http.MethodDelete, "/v1/slots/missing", "", "admin-1", "id", "missing")
	require.NoError(t, h.DeleteSlot(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSlotsAvailableFilter(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 1, "stu-1"), testSlot("slot-2", 1))
	h := NewSlotHandler(service.NewBookingService(store, zap.NewNop()))

	c, rec := newRequestContext(http.MethodGet, "/v1/slots?available=true", "", "")
	require.NoError(t, h.ListSlots(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "slot-2", items[0].(map[string]any)["id"])
}

func TestGetSlot(t *testing.T) {
	store := newStubStore(testSlot("slot-1", 1))
	h := NewSlotHandler(service.NewBookingService(store, zap.NewNop()))

	c, rec := newRequestContext(http.MethodGet, "/v1/slots/slot-1", "", "", "id", "slot-1")
	require.NoError(t, h.GetSlot(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	item := decodeBody(t, rec)["item"].(map[string]any)
	assert.Equal(t, "Acme", item["company"])

	c, rec = newRequestContext(http.MethodGet, "/v1/slots/missing", "", "", "id", "missing")
	require.NoError(t, h.GetSlot(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
