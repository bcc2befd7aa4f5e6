// path: internal/httpapi/posts.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/techappsUT/social-scheduler/internal/store"
	"github.com/techappsUT/social-scheduler/pkg/response"
)

// createPost implements spec.md §6.1 createPost: one transaction,
// rejecting any target whose platform is not currently configured.
func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "validation_error", "fields": formatValidationErrors(err)})
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAtUTC)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "scheduledAtUtc must be RFC3339", err)
		return
	}

	post, err := s.buildPost(r.Context(), uuid.New(), req.BaseContent, scheduledAt, req.MediaIDs, req.Targets)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	post.Status = store.PostStatusScheduled

	if err := s.store.CreatePost(r.Context(), post); err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to create post", err)
		return
	}

	saved, err := s.store.LoadPost(r.Context(), post.ID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to load created post", err)
		return
	}
	response.JSON(w, http.StatusCreated, toPostResponse(saved))
}

// updatePost implements spec.md §6.1 updatePost: only while status is
// scheduled, replacing targets and media links wholesale.
func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid post id", err)
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "validation_error", "fields": formatValidationErrors(err)})
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAtUTC)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "scheduledAtUtc must be RFC3339", err)
		return
	}

	post, err := s.buildPost(r.Context(), id, req.BaseContent, scheduledAt, req.MediaIDs, req.Targets)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	if err := s.store.UpdatePost(r.Context(), post); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "post not found", nil)
			return
		}
		if errors.Is(err, store.ErrNotEditable) {
			response.Error(w, http.StatusConflict, "post is no longer editable", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to update post", err)
		return
	}

	saved, err := s.store.LoadPost(r.Context(), id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to load updated post", err)
		return
	}
	response.Success(w, toPostResponse(saved))
}

// deletePost implements spec.md §6.1 deletePost, cascading per invariant 4.
func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid post id", err)
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid post id", err)
		return
	}
	post, err := s.store.LoadPost(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "post not found", nil)
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to load post", err)
		return
	}
	response.Success(w, toPostResponse(post))
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to list posts", err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPostResponse(&posts[i]))
	}
	response.Success(w, out)
}

// buildErr distinguishes a request-shape problem (bad uuid, unconfigured
// platform) from an infrastructure failure so handlers can pick the
// right HTTP status.
type buildErr struct {
	status int
	msg    string
	cause  error
}

func (e *buildErr) Error() string { return e.msg }

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	var be *buildErr
	if errors.As(err, &be) {
		response.Error(w, be.status, be.msg, be.cause)
		return
	}
	response.Error(w, http.StatusInternalServerError, "failed to build post", err)
}

// buildPost validates platform configuration and media ids and
// assembles the store.Post graph shared by createPost and updatePost.
func (s *Server) buildPost(ctx context.Context, postID uuid.UUID, content string, scheduledAt time.Time, mediaIDs []string, targets []targetRequest) (*store.Post, error) {
	configured, err := s.configuredPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	post := &store.Post{
		ID:          postID,
		Content:     content,
		ScheduledAt: &scheduledAt,
	}

	for i, id := range mediaIDs {
		mid, err := uuid.Parse(id)
		if err != nil {
			return nil, &buildErr{status: http.StatusBadRequest, msg: "invalid media id", cause: err}
		}
		post.MediaLinks = append(post.MediaLinks, store.PostMediaLink{MediaID: mid, Position: i})
	}

	for _, t := range targets {
		platform := store.Platform(t.Platform)
		if !configured[platform] {
			return nil, &buildErr{status: http.StatusUnprocessableEntity, msg: "platform not configured: " + t.Platform}
		}

		target := store.PlatformTarget{
			Platform:        platform,
			ContentOverride: t.OverrideContent,
			Status:          store.TargetStatusPending,
		}
		if t.OverrideOptions != nil {
			target.Options = store.JSONMap(t.OverrideOptions)
		}
		for _, mid := range t.OverrideMediaIDs {
			id, err := uuid.Parse(mid)
			if err != nil {
				return nil, &buildErr{status: http.StatusBadRequest, msg: "invalid override media id", cause: err}
			}
			target.OverrideMediaIDs = append(target.OverrideMediaIDs, id)
		}
		post.Targets = append(post.Targets, target)
	}

	return post, nil
}

// configuredPlatforms is the platform set createPost/updatePost validate
// targets against: an adapter must be registered AND credentials stored.
func (s *Server) configuredPlatforms(ctx context.Context) (map[store.Platform]bool, error) {
	creds, err := s.store.ListConfiguredPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[store.Platform]bool, len(creds))
	for _, p := range creds {
		if _, err := s.registry.Get(p); err == nil {
			out[p] = true
		}
	}
	return out, nil
}
