package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"castwave/internal/ingest"
	"castwave/internal/media"
	"castwave/internal/models"
	"castwave/internal/storage"
)

type episodeResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	AudioURL     string `json:"audio_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Published    bool   `json:"published"`
	CreatedBy    string `json:"created_by,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func newEpisodeResponse(episode models.Episode) episodeResponse {
	return episodeResponse{
		ID:           episode.ID,
		Title:        episode.Title,
		Description:  episode.Description,
		Category:     episode.Category,
		AudioURL:     episode.AudioURL,
		ThumbnailURL: episode.ThumbnailURL,
		Published:    episode.Published,
		CreatedBy:    episode.CreatedBy,
		CreatedAt:    episode.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    episode.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func episodeListResponse(episodes []models.Episode) []episodeResponse {
	response := make([]episodeResponse, 0, len(episodes))
	for _, episode := range episodes {
		response = append(response, newEpisodeResponse(episode))
	}
	return response
}

// Episodes serves the public published-only listing.
func (h *Handler) Episodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	episodes, err := h.Store.ListEpisodes(r.Context(), true)
	if err != nil {
		h.Logger.Error("list episodes failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list episodes failed"))
		return
	}
	writeJSON(w, http.StatusOK, episodeListResponse(episodes))
}

// EpisodeByID serves a single published episode. Unknown and malformed
// identifiers are indistinguishable to the public surface.
func (h *Handler) EpisodeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/episodes/")
	episode, err := h.Store.GetEpisode(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidID) {
			writeError(w, http.StatusNotFound, fmt.Errorf("episode not found"))
			return
		}
		h.Logger.Error("get episode failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("get episode failed"))
		return
	}
	if !episode.Published {
		writeError(w, http.StatusNotFound, fmt.Errorf("episode not found"))
		return
	}
	writeJSON(w, http.StatusOK, newEpisodeResponse(episode))
}

// AdminEpisodes lists the full catalog and accepts new episodes.
func (h *Handler) AdminEpisodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		episodes, err := h.Store.ListEpisodes(r.Context(), false)
		if err != nil {
			h.Logger.Error("list episodes failed", "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("list episodes failed"))
			return
		}
		writeJSON(w, http.StatusOK, episodeListResponse(episodes))
	case http.MethodPost:
		admin, ok := h.requireAdmin(w, r)
		if !ok {
			return
		}
		contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
		var input ingest.CreateEpisodeInput
		var err error
		if strings.HasPrefix(contentType, "multipart/form-data") {
			input, err = parseMultipartEpisode(r)
		} else {
			input, err = parseJSONEpisode(r)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		input.CreatedBy = admin.ID

		episode, err := h.Ingest.CreateEpisode(r.Context(), input)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEpisodeResponse(episode))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type updateEpisodeRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	AudioURL     *string `json:"audio_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Published    *bool   `json:"published"`
}

// AdminEpisodeByID updates or deletes one catalog entry.
func (h *Handler) AdminEpisodeByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/episodes/")
	switch r.Method {
	case http.MethodGet:
		episode, err := h.Store.GetEpisode(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEpisodeResponse(episode))
	case http.MethodPatch:
		var req updateEpisodeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid update payload"))
			return
		}
		update := storage.EpisodeUpdate{
			Title:        req.Title,
			Description:  req.Description,
			Category:     req.Category,
			AudioURL:     req.AudioURL,
			ThumbnailURL: req.ThumbnailURL,
			Published:    req.Published,
		}
		episode, err := h.Store.UpdateEpisode(r.Context(), id, update)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		h.Logger.Info("updated episode", "episode_id", episode.ID)
		writeJSON(w, http.StatusOK, newEpisodeResponse(episode))
	case http.MethodDelete:
		if err := h.Store.DeleteEpisode(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		h.Logger.Info("deleted episode", "episode_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, PATCH, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type createEpisodeRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	AudioURL     string `json:"audio_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Published    *bool  `json:"published"`
}

func parseJSONEpisode(r *http.Request) (ingest.CreateEpisodeInput, error) {
	var req createEpisodeRequest
	if err := decodeJSON(r, &req); err != nil {
		return ingest.CreateEpisodeInput{}, badRequestf("invalid episode payload")
	}
	return ingest.CreateEpisodeInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Published:   req.Published,
		Audio:       ingest.AssetInput{FallbackURL: req.AudioURL},
		Cover:       ingest.AssetInput{FallbackURL: req.ThumbnailURL},
	}, nil
}

// formValueLimit bounds text form fields; media ceilings are enforced
// separately per asset class.
const formValueLimit = 64 << 10

func parseMultipartEpisode(r *http.Request) (ingest.CreateEpisodeInput, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return ingest.CreateEpisodeInput{}, badRequestf("invalid multipart payload")
	}
	var input ingest.CreateEpisodeInput
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ingest.CreateEpisodeInput{}, badRequestf("read multipart data: %v", err)
		}
		name := part.FormName()
		switch name {
		case "audio":
			if input.Audio.File == nil {
				file, err := readFilePart(part, media.AssetAudio)
				if err != nil {
					_ = part.Close()
					return ingest.CreateEpisodeInput{}, err
				}
				input.Audio.File = file
			}
		case "cover":
			if input.Cover.File == nil {
				file, err := readFilePart(part, media.AssetCover)
				if err != nil {
					_ = part.Close()
					return ingest.CreateEpisodeInput{}, err
				}
				input.Cover.File = file
			}
		case "title", "description", "category", "published", "audio_url", "thumbnail_url":
			value, err := readFormValue(part)
			if err != nil {
				_ = part.Close()
				return ingest.CreateEpisodeInput{}, err
			}
			switch name {
			case "title":
				input.Title = value
			case "description":
				input.Description = value
			case "category":
				input.Category = value
			case "audio_url":
				input.Audio.FallbackURL = value
			case "thumbnail_url":
				input.Cover.FallbackURL = value
			case "published":
				published, err := strconv.ParseBool(strings.TrimSpace(value))
				if err != nil {
					_ = part.Close()
					return ingest.CreateEpisodeInput{}, badRequestf("published must be a boolean")
				}
				input.Published = &published
			}
		}
		_ = part.Close()
	}
	return input, nil
}

func readFormValue(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, formValueLimit))
	if err != nil {
		return "", badRequestf("read form field %s: %v", part.FormName(), err)
	}
	return string(data), nil
}

// readFilePart validates the declared content type, then the transport size
// hint when one is present, and only then reads the body. The read is capped
// one byte past the ceiling so an understated hint still trips the size
// check.
func readFilePart(part *multipart.Part, class media.AssetClass) (*ingest.FileInput, error) {
	contentType := part.Header.Get("Content-Type")
	if err := media.ValidateType(class, contentType); err != nil {
		return nil, err
	}
	max := media.MaxBytes(class)
	if hint := part.Header.Get("Content-Length"); hint != "" {
		if declared, err := strconv.ParseInt(hint, 10, 64); err == nil {
			if err := media.ValidateSize(class, declared); err != nil {
				return nil, err
			}
		}
	}
	data, err := io.ReadAll(io.LimitReader(part, max+1))
	if err != nil {
		return nil, badRequestf("read %s upload: %v", class, err)
	}
	if err := media.ValidateSize(class, int64(len(data))); err != nil {
		return nil, err
	}
	return &ingest.FileInput{
		Filename:    part.FileName(),
		ContentType: contentType,
		Data:        data,
	}, nil
}
