package main

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/siteuser/pkg/sessions"
	"github.com/tendant/siteuser/pkg/siteuser"
)

// ProfileReader is the part of siteuser.Service the /me endpoint reads names from.
type ProfileReader interface {
	FullName(ctx context.Context, u *siteuser.User) string
	ShortName(ctx context.Context, u *siteuser.User) string
}

type MeResponse struct {
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	ShortName   string `json:"short_name"`
	SiteID      int64  `json:"site_id"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	Backend     string `json:"backend"`
}

type MeHandle struct {
	profiles ProfileReader
}

func NewMeHandle(profiles ProfileReader) MeHandle {
	return MeHandle{profiles: profiles}
}

func (h MeHandle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := sessions.UserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"code": "UNAUTHENTICATED", "message": "login required"})
		return
	}

	render.JSON(w, r, MeResponse{
		ExternalID:  u.ExternalID,
		Email:       u.Email,
		FullName:    h.profiles.FullName(r.Context(), u),
		ShortName:   h.profiles.ShortName(r.Context(), u),
		SiteID:      u.SiteID,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Backend:     u.Backend(),
	})
}
