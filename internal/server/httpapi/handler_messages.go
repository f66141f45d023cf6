package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/services"
)

type moveRequest struct {
	Folder string `json:"folder"`
}

type readRequest struct {
	Read *bool `json:"read"`
}

type activeDraftRequest struct {
	ForceNew bool `json:"forceNew"`
}

// patchFromBody decodes a MessageInput and normalizes it.
func patchFromBody(w http.ResponseWriter, r *http.Request) (models.MessagePatch, error) {
	var in models.MessageInput
	if err := decodeJSON(w, r, &in); err != nil {
		return models.MessagePatch{}, err
	}
	return in.Normalize()
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder := q.Get("folder")
	if folder == "" {
		folder = string(models.FolderInbox)
	}

	opts := services.ListOptions{FilterBy: q.Get("filter"), SortBy: q.Get("sort")}
	var err error
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Offset, err = queryInt(r, "offset"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if tag := q.Get("tag"); tag != "" {
		if opts.TagID, err = strconv.ParseInt(tag, 10, 64); err != nil {
			s.writeError(w, r, errInvalidParam("tag", tag))
			return
		}
	}

	res, err := s.svc.Messages.List(r.Context(), userID(r.Context()), folder, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) searchMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.svc.Messages.Search(r.Context(), userID(r.Context()), q.Get("q"), q.Get("folder"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) counts(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Messages.Counts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	p, err := patchFromBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.Create(r.Context(), userID(r.Context()), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) receiveMessage(w http.ResponseWriter, r *http.Request) {
	p, err := patchFromBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.Receive(r.Context(), userID(r.Context()), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := patchFromBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.Update(r.Context(), userID(r.Context()), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.svc.Messages.Delete(r.Context(), userID(r.Context()), id, queryBool(r, "permanent"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"permanent": removed})
}

func (s *Server) moveMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.Move(r.Context(), userID(r.Context()), id, req.Folder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) toggleStar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.Messages.ToggleStar(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req readRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	read := req.Read == nil || *req.Read
	m, err := s.svc.Messages.MarkRead(r.Context(), userID(r.Context()), id, read)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) messageTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.Messages.MessageTags(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Tag{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) tagIDs(r *http.Request) (int64, int64, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	tagID, err := pathID(r, "tagID")
	if err != nil {
		return 0, 0, err
	}
	return id, tagID, nil
}

func (s *Server) addTag(w http.ResponseWriter, r *http.Request) {
	id, tagID, err := s.tagIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	added, err := s.svc.Messages.AddTag(r.Context(), userID(r.Context()), id, tagID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (s *Server) removeTag(w http.ResponseWriter, r *http.Request) {
	id, tagID, err := s.tagIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.svc.Messages.RemoveTag(r.Context(), userID(r.Context()), id, tagID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) activeDraft(w http.ResponseWriter, r *http.Request) {
	m, ok, err := s.svc.Messages.ActiveDraft(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) createActiveDraft(w http.ResponseWriter, r *http.Request) {
	var req activeDraftRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	m, err := s.svc.Messages.CreateActiveDraft(r.Context(), userID(r.Context()), req.ForceNew)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) clearActiveDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Messages.ClearActiveDraft(r.Context(), userID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req services.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Send.Send(r.Context(), userID(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) sendDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req services.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Send.SendDraft(r.Context(), userID(r.Context()), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
