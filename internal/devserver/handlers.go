package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/boostify/internal/attendance"
)

type ctxKey struct{}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/heic": {},
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AssistantCode string `json:"assisstant_code"`
	Token         struct {
		Token string `json:"token"`
	} `json:"token"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	profile, token, err := s.store.authenticate(req.Username, req.Password)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, err.Error())
		return
	}
	resp := loginResponse{
		ID:            profile.ID,
		Name:          profile.Name,
		Email:         profile.AssistantCode,
		AssistantCode: profile.AssistantCode,
	}
	resp.Token.Token = token
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		profile, ok := s.store.userForToken(strings.TrimSpace(token))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, profile)))
	})
}

func currentUser(r *http.Request) attendance.Profile {
	profile, _ := r.Context().Value(ctxKey{}).(attendance.Profile)
	return profile
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleAttendances(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	var day time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	rows, total, totalPages := s.store.attendances(page, s.settings.PageSize, day)
	writeJSON(w, http.StatusOK, map[string]any{
		"assistances": rows,
		"total":       total,
		"currentPage": page,
		"totalPages":  totalPages,
	})
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	rows, totalPages := s.store.recap(page, s.settings.RecapPageSize)
	writeJSON(w, http.StatusOK, map[string]any{
		"payload": rows,
		"pagination": map[string]int{
			"currentPage": page,
			"totalPages":  totalPages,
		},
	})
}

func (s *Server) handlePersonalRecords(w http.ResponseWriter, r *http.Request) {
	records := s.store.personalRecords(currentUser(r).AssistantCode)
	if len(records) == 0 {
		writeMessage(w, http.StatusNotFound, "no attendance records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payload": map[string]any{"attendancesTime": records},
	})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	if err := r.ParseMultipartForm(s.settings.MaxBodyBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		writeMessage(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if _, ok := allowedImageTypes[contentType]; !ok {
		writeMessage(w, http.StatusUnsupportedMediaType, "Only JPG, JPEG, PNG, and HEIC formats are allowed.")
		return
	}
	user := currentUser(r)
	url := fmt.Sprintf("/uploads/%s/%d-%s", strings.ToLower(user.AssistantCode), s.now().Unix(), path.Base(header.Filename))
	updated := s.store.setImage(user.AssistantCode, url)
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedUser": map[string]any{
			"id":       updated.ID,
			"imageUrl": updated.ImageURL,
		},
	})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	s.store.setImage(currentUser(r).AssistantCode, attendance.DefaultAvatar)
	writeMessage(w, http.StatusOK, "image deleted")
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		writeMessage(w, http.StatusBadRequest, "All password fields are required.")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeMessage(w, http.StatusBadRequest, "New password and confirmation do not match.")
		return
	}
	if err := s.store.changePassword(currentUser(r).AssistantCode, req.CurrentPassword, req.NewPassword); err != nil {
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect.")
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
