package auth

import (
	"net/http"

	"campuscrave/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	Store  *Store
	Tokens *Tokens
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input RegisterInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	sess, err := h.Store.Register(input)
	switch {
	case errors.Is(err, ErrValidation):
		utils.SendResponse(w, http.StatusBadRequest, nil, "Registration failed", err)
		return
	case errors.Is(err, ErrEmailTaken):
		utils.SendResponse(w, http.StatusConflict, nil, "Email already registered.", err)
		return
	case err != nil:
		log.WithError(err).Error("register")
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not register user")
		return
	}

	h.respondWithSession(w, http.StatusCreated, sess, "Registration successful")
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input loginInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := h.Store.Login(input.Email, input.Password)
	if err != nil {
		utils.SendResponse(w, http.StatusUnauthorized, nil, "Invalid email or password", err)
		return
	}

	h.respondWithSession(w, http.StatusOK, sess, "Login successful")
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := SessionFrom(r.Context())
	if !ok || !h.Store.Logout(sess.ID) {
		utils.RespondWithError(w, http.StatusUnauthorized, ErrNoSession.Error())
		return
	}
	log.WithField("userId", sess.User.ID).Info("user logged out")
	utils.SendResponse(w, http.StatusOK, nil, "Logged out successfully", nil)
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, ErrNoSession.Error())
		return
	}
	utils.SendResponse(w, http.StatusOK, sess.User, "", nil)
}

func (h *Handler) respondWithSession(w http.ResponseWriter, status int, sess Session, msg string) {
	token, err := h.Tokens.Issue(sess)
	if err != nil {
		log.WithError(err).Error("issue token")
		h.Store.Logout(sess.ID)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.SendResponse(w, status, map[string]any{
		"token": token,
		"user":  sess.User,
	}, msg, nil)
}
