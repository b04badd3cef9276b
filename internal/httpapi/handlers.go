package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/middleware"
)

const (
	refreshCookieName = "refreshToken"
	maxBodyBytes      = 1 << 20
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	OTP   string `json:"otp"`
	Email string `json:"email"`
}

type signinRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var body signupRequest
	if !r.decode(w, req, &body) {
		return
	}

	email, err := r.auth.Signup(requestContext(req), blogauth.SignupRequest{
		Email:    body.Email,
		Name:     body.Name,
		Password: body.Password,
	})
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (r *Router) handleVerifyOTP(w http.ResponseWriter, req *http.Request) {
	var body verifyOTPRequest
	if !r.decode(w, req, &body) {
		return
	}

	res, err := r.auth.VerifyOTP(requestContext(req), body.OTP, body.Email)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: res.Message})
}

func (r *Router) handleSignin(w http.ResponseWriter, req *http.Request) {
	var body signinRequest
	if !r.decode(w, req, &body) {
		return
	}

	pair, err := r.auth.Signin(requestContext(req), body.Identifier, body.Password)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	r.setRefreshCookie(w, pair.RefreshToken, r.opts.RefreshTTL)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": pair.AccessToken})
}

// handleRefresh prefers the cookie and falls back to a JSON body for
// clients that cannot hold cookies.
func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var token string
	if c, err := req.Cookie(refreshCookieName); err == nil {
		token = c.Value
	}
	if token == "" && req.ContentLength != 0 {
		var body refreshRequest
		if !r.decode(w, req, &body) {
			return
		}
		token = body.RefreshToken
	}

	access, err := r.auth.Refresh(requestContext(req), token)
	if err != nil {
		if errors.Is(err, blogauth.ErrRefreshTokenExpired) {
			r.setRefreshCookie(w, "", -1)
		}
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (r *Router) handleForgotPassword(w http.ResponseWriter, req *http.Request) {
	var body forgotPasswordRequest
	if !r.decode(w, req, &body) {
		return
	}

	res, err := r.auth.RequestPasswordReset(requestContext(req), body.Email)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: res.Message})
}

func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) {
	var body resetPasswordRequest
	if !r.decode(w, req, &body) {
		return
	}

	res, err := r.auth.CompletePasswordReset(requestContext(req), body.Token, body.Password)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: res.Message})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	claims, ok := middleware.ClaimsFromContext(req.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: blogauth.ErrUnauthorized.Code})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    claims.UserID,
		"role":  claims.Role,
		"email": claims.Email,
	})
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if err := r.auth.Ping(ctx); err != nil {
		r.log.WarnContext(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: blogauth.ErrInvalidInput.Code})
		return false
	}
	return true
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	kind := blogauth.KindOf(err)
	status := statusFor(kind)

	if kind == blogauth.KindServerError {
		r.log.ErrorContext(req.Context(), "request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"code", blogauth.CodeOf(err),
			"error", err,
		)
	}

	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, errorResponse{Error: blogauth.CodeOf(err)})
}

func statusFor(kind blogauth.Kind) int {
	switch kind {
	case blogauth.KindConflict:
		return http.StatusConflict
	case blogauth.KindNotFound:
		return http.StatusNotFound
	case blogauth.KindBadRequest:
		return http.StatusBadRequest
	case blogauth.KindUnauthorized:
		return http.StatusUnauthorized
	case blogauth.KindNoContent:
		return http.StatusNoContent
	case blogauth.KindOK:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return blogauth.WithClientIP(r.Context(), host)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
