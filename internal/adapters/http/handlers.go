package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"academy/internal/adapters/http/middleware"
	"academy/internal/application/listutil"
	"academy/internal/application/orchestrators"
	"academy/internal/application/projections"
	courseDomain "academy/internal/domain/course"
	paymentDomain "academy/internal/domain/payment"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const templatesDir = "internal/adapters/http/templates"

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	role := ""
	emailAddr := ""
	name := ""
	if ok {
		role = sess.Role
		emailAddr = sess.Email
		name = sess.DisplayName
	}

	funcMap := template.FuncMap{
		"currentRole":  func() string { return role },
		"currentEmail": func() string { return emailAddr },
		"currentName":  func() string { return name },
		"isLoggedIn":   func() bool { return role != "" },
		"isAdmin":      func() bool { return role == "admin" },
		"csrfToken":    func() string { return csrf.Token(r) },
		"formatPrice": func(major int) string {
			return fmt.Sprintf("%d Ft", major)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	pagePath := filepath.Join(templatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// --- Auth handlers ---

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/courses", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"CSRFToken": csrf.Token(r),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.LoginInput{
			Email:    r.FormValue("Email"),
			Password: r.FormValue("Password"),
		}
		result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
			AccountStore: stores.AccountStore,
		})
		if err != nil {
			renderTemplate(w, r, "login.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Error":     err.Error(),
			})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.DisplayName, result.Role)
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/courses", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("academy_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleSignup handles GET (form) and POST (create account) for /signup
func handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		renderTemplate(w, r, "signup.html", map[string]any{
			"CSRFToken": csrf.Token(r),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.CreateAccountInput{
			Email:       r.FormValue("Email"),
			Password:    r.FormValue("Password"),
			DisplayName: r.FormValue("DisplayName"),
		}
		id, err := orchestrators.ExecuteCreateAccount(r.Context(), input, orchestrators.CreateAccountDeps{
			AccountStore: stores.AccountStore,
		})
		if err != nil {
			renderTemplate(w, r, "signup.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Error":     err.Error(),
			})
			return
		}

		token, err := sessions.Create(id, input.Email, input.DisplayName, "learner")
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/courses", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// --- Course pages ---

// handleCourseList handles GET /courses
func handleCourseList(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	lp := listutil.ParseListParams(r.URL.Query(), []string{"category"})
	pageInfo := listutil.NewPageInfo(lp.Page, lp.PerPage, 0)

	query := projections.GetCourseListQuery{
		Category: lp.Filters["category"],
		Search:   lp.Search,
		Limit:    lp.PerPage,
		Offset:   pageInfo.Offset(),
	}
	result, err := projections.QueryGetCourseList(r.Context(), query, projections.GetCourseListDeps{
		CourseStore:     stores.CourseStore,
		MembershipStore: stores.MembershipStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	if isHTMLRequest(r) {
		renderTemplate(w, r, "course_list.html", map[string]any{
			"Courses":  result.Courses,
			"Total":    result.Total,
			"PageInfo": listutil.NewPageInfo(lp.Page, lp.PerPage, result.Total),
			"Category": query.Category,
			"Search":   lp.Search,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCoursePage handles GET /courses/{id}. This is the landing page
// for payment redirects: when the payment query flag reports success
// and a user is signed in, the membership is reconciled before the
// page renders.
func handleCoursePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	courseID := strings.TrimPrefix(r.URL.Path, "/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		http.NotFound(w, r)
		return
	}

	sess, _ := middleware.GetSessionFromContext(r.Context())
	paymentStatus := r.URL.Query().Get(paymentDomain.ReturnParam)

	if paymentStatus != "" {
		_, err := orchestrators.ExecuteReconcilePayment(r.Context(), orchestrators.ReconcilePaymentInput{
			CourseID:      courseID,
			PaymentStatus: paymentStatus,
			UID:           sess.AccountID,
			DisplayName:   sess.DisplayName,
			Email:         sess.Email,
		}, registerForCourseDeps())
		if err != nil && !errors.Is(err, courseDomain.ErrCourseFull) {
			internalError(w, err)
			return
		}
	}

	detail, err := projections.QueryGetCourseDetail(r.Context(), projections.GetCourseDetailQuery{
		CourseID:   courseID,
		ViewerID:   sess.AccountID,
		ViewerRole: sess.Role,
	}, projections.GetCourseDetailDeps{
		CourseStore:     stores.CourseStore,
		MembershipStore: stores.MembershipStore,
	})
	if errors.Is(err, courseDomain.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	if isHTMLRequest(r) {
		renderTemplate(w, r, "course_detail.html", map[string]any{
			"Course":        detail,
			"PaymentStatus": paymentStatus,
			"CSRFToken":     csrf.Token(r),
		})
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// --- Course API ---

// courseInput mirrors the admin authoring form.
type courseInput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Lead        string   `json:"lead"`
	Description string   `json:"description"`
	Instructor  string   `json:"instructor"`
	Location    string   `json:"location"`
	Categories  []string `json:"categories"`
	StartsAt    string   `json:"startsAt"`
	Price       int      `json:"price"`
	MaxCapacity int      `json:"maxCapacity"`
}

// handleCourses handles GET (list) and POST (create/update, admin) for /api/courses
func handleCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		result, err := projections.QueryGetCourseList(ctx, projections.GetCourseListQuery{
			Category: r.URL.Query().Get("category"),
			Search:   r.URL.Query().Get("q"),
		}, projections.GetCourseListDeps{
			CourseStore:     stores.CourseStore,
			MembershipStore: stores.MembershipStore,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == "POST" {
		if !middleware.IsAdmin(ctx) {
			jsonError(w, http.StatusForbidden, "admin access required")
			return
		}

		var in courseInput
		if err := strictDecode(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		startsAt, err := parseStartsAt(in.StartsAt)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "startsAt must be RFC 3339")
			return
		}

		id, err := orchestrators.ExecuteSaveCourse(ctx, orchestrators.SaveCourseInput{
			ID:          in.ID,
			Title:       in.Title,
			Lead:        in.Lead,
			Description: in.Description,
			Instructor:  in.Instructor,
			Location:    in.Location,
			Categories:  in.Categories,
			StartsAt:    startsAt,
			Price:       in.Price,
			MaxCapacity: in.MaxCapacity,
		}, orchestrators.SaveCourseDeps{
			CourseStore: stores.CourseStore,
			GenerateID:  generateID,
			Now:         timeNow,
		})
		if errors.Is(err, courseDomain.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "course not found")
			return
		}
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func parseStartsAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// handleCourseItem handles GET (detail) and DELETE (admin) for /api/courses/{id}
func handleCourseItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := strings.TrimPrefix(r.URL.Path, "/api/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		http.NotFound(w, r)
		return
	}

	if r.Method == "GET" {
		sess, _ := middleware.GetSessionFromContext(ctx)
		detail, err := projections.QueryGetCourseDetail(ctx, projections.GetCourseDetailQuery{
			CourseID:   courseID,
			ViewerID:   sess.AccountID,
			ViewerRole: sess.Role,
		}, projections.GetCourseDetailDeps{
			CourseStore:     stores.CourseStore,
			MembershipStore: stores.MembershipStore,
		})
		if errors.Is(err, courseDomain.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "course not found")
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}

	if r.Method == "DELETE" {
		if !middleware.IsAdmin(ctx) {
			jsonError(w, http.StatusForbidden, "admin access required")
			return
		}
		err := orchestrators.ExecuteDeleteCourse(ctx, courseID, orchestrators.DeleteCourseDeps{
			CourseStore: stores.CourseStore,
		})
		if errors.Is(err, courseDomain.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "course not found")
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// --- Enrollment API ---

func registerForCourseDeps() orchestrators.RegisterForCourseDeps {
	return orchestrators.RegisterForCourseDeps{
		CourseStore:     stores.CourseStore,
		MembershipStore: stores.MembershipStore,
		OutboxStore:     stores.OutboxStore,
		GenerateID:      generateID,
		Now:             timeNow,
	}
}

// decodeCourseID reads the course id from a JSON body or a form post.
func decodeCourseID(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return r.FormValue("courseId"), nil
	}
	var in struct {
		CourseID string `json:"courseId"`
	}
	if err := strictDecode(r, &in); err != nil {
		return "", err
	}
	return in.CourseID, nil
}

// handleRegister handles POST /api/courses/register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "sign in to register")
		return
	}

	courseID, err := decodeCourseID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := orchestrators.ExecuteRegisterForCourse(r.Context(), orchestrators.RegisterForCourseInput{
		CourseID:    courseID,
		UID:         sess.AccountID,
		DisplayName: sess.DisplayName,
		Email:       sess.Email,
	}, registerForCourseDeps())
	if errors.Is(err, courseDomain.ErrCourseFull) {
		jsonError(w, http.StatusConflict, "course is full")
		return
	}
	if errors.Is(err, courseDomain.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":        string(result.Outcome),
		"remainingSpots": result.RemainingSpots,
	})
}

// handleUnregister handles POST /api/courses/unregister
func handleUnregister(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "sign in first")
		return
	}

	courseID, err := decodeCourseID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := orchestrators.ExecuteUnregisterFromCourse(r.Context(), orchestrators.UnregisterFromCourseInput{
		CourseID: courseID,
		UID:      sess.AccountID,
	}, orchestrators.UnregisterFromCourseDeps{
		CourseStore:     stores.CourseStore,
		MembershipStore: stores.MembershipStore,
	})
	if errors.Is(err, courseDomain.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"remainingSpots": result.RemainingSpots,
	})
}

// --- Outbox API ---

// handleOutboxRetry handles POST /api/outbox/retry (admin). It forces a
// delivery attempt for one queued entry ahead of the background worker,
// typically a confirmation email stuck in retrying.
func handleOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if outboxProcessor == nil {
		jsonError(w, http.StatusInternalServerError, "outbox delivery is not configured")
		return
	}

	var in struct {
		ID string `json:"id"`
	}
	if err := strictDecode(r, &in); err != nil || in.ID == "" {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := outboxProcessor.ProcessSingle(r.Context(), in.ID); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": in.ID, "status": "processed"})
}

// --- Checkout API ---

// checkoutRequestBody mirrors the client payload for session creation.
type checkoutRequestBody struct {
	CourseID    string          `json:"courseId"`
	CourseTitle string          `json:"courseTitle"`
	CoursePrice json.RawMessage `json:"coursePrice"`
	UserID      string          `json:"userId"`
	UserEmail   string          `json:"userEmail"`
}

// price may arrive as a JSON number or a numeric string.
func (b checkoutRequestBody) price() (int, error) {
	raw := strings.Trim(string(b.CoursePrice), `"`)
	if raw == "" || raw == "null" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// handleCreateCheckoutSession handles POST /api/create-checkout-session
func handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if paymentGateway == nil {
		jsonError(w, http.StatusInternalServerError, "payments are not configured")
		return
	}

	var body checkoutRequestBody
	if err := strictDecode(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := body.price()
	if err != nil {
		jsonError(w, http.StatusBadRequest, paymentDomain.ErrInvalidPrice.Error())
		return
	}

	session, err := orchestrators.ExecuteCreateCheckout(r.Context(), orchestrators.CreateCheckoutInput{
		CourseID:    body.CourseID,
		CourseTitle: body.CourseTitle,
		CoursePrice: price,
		UserID:      body.UserID,
		UserEmail:   body.UserEmail,
	}, orchestrators.CreateCheckoutDeps{
		Gateway: paymentGateway,
		BaseURL: baseURLConfig,
	})
	switch {
	case err == nil:
	case errors.Is(err, paymentDomain.ErrBaseURL):
		jsonError(w, http.StatusInternalServerError, "checkout configuration error")
		return
	case errors.Is(err, paymentDomain.ErrGateway):
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	default:
		// Validation errors from the request payload
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}
