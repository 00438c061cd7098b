package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/utils"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentNumber string `json:"student_number" validate:"required,len=9,numeric"`
		FirstName     string `json:"first_name" validate:"required,max=100"`
		LastName      string `json:"last_name" validate:"required,max=100"`
		Email         string `json:"email" validate:"required,email"`
		Password      string `json:"password" validate:"required,min=8,max=72"`
		YearOfStudy   int32  `json:"year_of_study" validate:"required,min=1,max=6"`
		Program       string `json:"program" validate:"max=200"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateStudentNumber(req.StudentNumber); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		h.badRequest(w, r, err)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		StudentNumber: req.StudentNumber,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:  string(passwordHash),
		YearOfStudy:   req.YearOfStudy,
		Program:       strings.TrimSpace(req.Program),
	}

	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_student_number_key":
			h.errorResponse(w, r, http.StatusConflict, "student number is already registered")
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key":
			h.errorResponse(w, r, http.StatusConflict, "email is already registered")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// welcome mail is best effort
	if err := h.mail.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailTypeWelcome,
		To:   user.Email,
		Data: domain.WelcomeMailData{
			FullName:      user.FullName(),
			StudentNumber: user.StudentNumber,
			SiteURL:       h.config.SiteURL,
		},
	}); err != nil {
		slog.Warn("failed to queue welcome mail", "user_id", user.ID, "error", err)
	}

	h.writeJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Message: "registration successful",
		Data:    user,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, "invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.unauthorized(w, r, "invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	ss, expiration, err := h.signToken(user.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "login successful", user)
}

func (h *Handler) signToken(userID int64) (string, time.Time, error) {
	now := time.Now()
	expiration := now.Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiration),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Subject:   strconv.FormatInt(userID, 10),
	})

	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	return ss, expiration, err
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
		HttpOnly: true,
	})

	h.successResponse(w, r, "logout successful", nil)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.repository.GetUserByID(r.Context(), userIDFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, "account no longer exists")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "ok", user)
}
