package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/pkg"
)

const TokenHeader = "X-MMA-TOKEN"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// SetupRoutes expects a subrouter mounted at /api/auth.
func (handler *Handler) SetupRoutes(authRouter *mux.Router) {
	authRouter.HandleFunc("/login", handler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.HandleLogout).Methods("GET", "OPTIONS").Name("logout")
	authRouter.HandleFunc("/register", handler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	authRouter.HandleFunc("/change-password", handler.HandleChangePassword).Methods("POST", "OPTIONS").Name("change-password")
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	creds, ok := credentialsFromRequest(w, r)
	if !ok {
		return
	}

	token, err := handler.service.Login(ctx, creds.Username, creds.Password, time.Now())
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			userIp, ipErr := pkg.ReadUserIP(r)
			if ipErr != nil {
				userIp = r.RemoteAddr
			}
			log.Tracef("failed login attempt for user [%s] from [%s]", creds.Username, userIp)
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed for user %s: %s", creds.Username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success: %s", creds.Username)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"token": "%s", "user": "%s"}`, token, creds.Username))
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := r.Header.Get(TokenHeader)
	if token == "" {
		http.Error(w, "error, auth token empty", http.StatusBadRequest)
		return
	}

	if username, err := handler.service.TokenUsername(ctx, token); err == nil {
		log.Tracef("logout: %s", username)
	}

	if err := handler.service.Logout(ctx, token); err != nil {
		log.Errorf("logout failed: %s", err)
		http.Error(w, "logout failed", http.StatusBadRequest)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	type registerRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("register, unmarshal json params: %s", err)
		http.Error(w, "error, invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "error, username and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "error, password too short, 8 chars minimum", http.StatusBadRequest)
		return
	}

	user, err := handler.service.users.Create(req.Username, req.Password, req.Email, req.FullName)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			http.Error(w, "error, user already exists", http.StatusConflict)
			return
		}
		if errors.Is(err, ErrInvalidEmail) {
			http.Error(w, "error, invalid email", http.StatusBadRequest)
			return
		}
		log.Errorf("register user %s: %s", req.Username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s", user.Username)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON,
		[]byte(fmt.Sprintf(`{"registered": "%s"}`, user.Username)), http.StatusCreated)
}

func (handler *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.changePassword")
	defer span.End()

	type changePasswordRequest struct {
		Username    string `json:"username"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("change password, unmarshal json params: %s", err)
		http.Error(w, "change password failed", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.OldPassword == "" {
		http.Error(w, "error, username or old password empty", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "error, new password too short, 8 chars minimum", http.StatusBadRequest)
		return
	}

	if err := handler.service.users.ChangePassword(req.Username, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrWrongCredentials) || errors.Is(err, ErrUserNotFound) {
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("change password for user %s: %s", req.Username, err)
		http.Error(w, "change password failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "password-changed")
}

func credentialsFromRequest(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var creds credentialsRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			log.Errorf("auth request, unmarshal json params: %s", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return creds, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("auth request, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return creds, false
		}
		creds = credentialsRequest{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	if creds.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return creds, false
	}
	if creds.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return creds, false
	}
	return creds, true
}
