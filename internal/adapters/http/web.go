package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"academy/internal/adapters/http/middleware"
	gateway "academy/internal/adapters/payment"
	accountStore "academy/internal/adapters/storage/account"
	courseStore "academy/internal/adapters/storage/course"
	outboxStore "academy/internal/adapters/storage/outbox"
	"academy/internal/application/orchestrators"
	"academy/internal/domain/account"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	CourseStore     courseStore.Store
	MembershipStore courseStore.MembershipStore
	OutboxStore     outboxStore.Store
}

// LoadCSRFKey decodes the hex-encoded 32-byte CSRF secret.
// In production, the key MUST be set. In development, a random key is generated per startup.
func LoadCSRFKey(keyHex string, production bool) []byte {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("ACADEMY_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if production {
		log.Fatal("ACADEMY_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set ACADEMY_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Payment wiring (set by SetPaymentGateway)
var paymentGateway gateway.Gateway
var baseURLConfig orchestrators.BaseURLConfig

// SetPaymentGateway sets the checkout gateway and redirect base settings.
func SetPaymentGateway(g gateway.Gateway, cfg orchestrators.BaseURLConfig) {
	paymentGateway = g
	baseURLConfig = cfg
}

// Global outbox processor instance (set by SetOutboxProcessor). The
// background worker owns routine delivery; this handle serves manual
// admin retries.
var outboxProcessor *orchestrators.OutboxProcessor

// SetOutboxProcessor exposes the delivery engine to the admin retry endpoint.
func SetOutboxProcessor(p *orchestrators.OutboxProcessor) {
	outboxProcessor = p
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, csrfKey []byte) http.Handler {
	stores = s
	sessions = middleware.NewSessionStore()

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	registerRoutes(mux)

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> Auth -> CSRF -> SecurityHeaders -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing,
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/login", handleLogin)
	mux.Handle("/logout", middleware.RequireAuth(http.HandlerFunc(handleLogout)))
	mux.HandleFunc("/signup", handleSignup)

	mux.HandleFunc("/courses", handleCourseList)
	mux.HandleFunc("/courses/", handleCoursePage)

	mux.HandleFunc("/api/courses", handleCourses)
	mux.HandleFunc("/api/courses/", handleCourseItem)
	mux.HandleFunc("/api/courses/register", handleRegister)
	mux.HandleFunc("/api/courses/unregister", handleUnregister)
	mux.HandleFunc("/api/create-checkout-session", handleCreateCheckoutSession)
	mux.Handle("/api/outbox/retry", middleware.RequireRole(account.RoleAdmin)(http.HandlerFunc(handleOutboxRetry)))
}
