package api

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopit-io/shopit/internal/auth"
	"github.com/shopit-io/shopit/internal/database"
	"github.com/shopit-io/shopit/internal/media"
	"github.com/shopit-io/shopit/internal/models"
)

const maxAvatarUpload = 10 << 20 // 10 MiB

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type AuthResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, AuthResponse{Success: false, Message: message})
}

// RegisterHandler handles user registration. It accepts either a JSON body
// with an optional avatar URL, or multipart/form-data carrying an avatar
// file part.
func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	input, err := parseRegisterRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, token, err := api.authService.Register(r.Context(), input)
	if err != nil {
		var vErr *auth.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, database.ErrEmailTaken):
			respondError(w, http.StatusBadRequest, "User already exists with this email")
		default:
			log.Printf("Registration failed for %s: %v", input.Email, err)
			respondError(w, http.StatusInternalServerError, "Server Error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{Success: true, User: user, Token: token})
}

func parseRegisterRequest(r *http.Request) (auth.RegisterInput, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxAvatarUpload); err != nil {
			return auth.RegisterInput{}, err
		}

		input := auth.RegisterInput{
			Name:     r.FormValue("name"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}

		file, header, err := r.FormFile("avatar")
		switch {
		case err == nil:
			input.Avatar = media.Source{File: file, Filename: header.Filename}
		case errors.Is(err, http.ErrMissingFile):
			input.Avatar = media.Source{RemoteURL: r.FormValue("avatar")}
		default:
			return auth.RegisterInput{}, err
		}
		return input, nil
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return auth.RegisterInput{}, err
	}
	return auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   media.Source{RemoteURL: req.Avatar},
	}, nil
}

// LoginHandler handles user login
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, token, err := api.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var vErr *auth.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Invalid Email or Password")
		default:
			log.Printf("Login failed for %s: %v", req.Email, err)
			respondError(w, http.StatusInternalServerError, "Server Error")
		}
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token, User: user})
}

// ForgotPasswordHandler issues a password-reset token and emails it
func (api *Api) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	message, err := api.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found with this email")
			return
		}
		log.Printf("Forgot password failed for %s: %v", req.Email, err)
		respondError(w, http.StatusInternalServerError, "Email could not be sent")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Success: true, Message: message})
}

// ResetPasswordHandler consumes an emailed reset token and sets a new password
func (api *Api) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, sessionToken, err := api.authService.ResetPassword(r.Context(), token, req.Password, req.ConfirmPassword)
	if err != nil {
		var vErr *auth.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, database.ErrNoActiveReset):
			respondError(w, http.StatusBadRequest, "Password reset token is invalid or has been expired")
		default:
			log.Printf("Password reset failed: %v", err)
			respondError(w, http.StatusInternalServerError, "Server Error")
		}
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Success: true, Token: sessionToken, User: user})
}

// MeHandler returns the authenticated user
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := api.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Failed to load user %s: %v", claims.UserID, err)
		respondError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Success: true, User: user})
}
