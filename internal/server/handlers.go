package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mattsolo1/grove-playground/pkg/autosave"
	"github.com/mattsolo1/grove-playground/pkg/language"
	"github.com/mattsolo1/grove-playground/pkg/search"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

type editRequest struct {
	Content *string `json:"content"`
}

type createRequest struct {
	ParentID string        `json:"parentId"`
	Name     string        `json:"name"`
	Type     tree.ItemType `json:"type"`
	Content  string        `json:"content"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type flushResult struct {
	FileID   string           `json:"fileId"`
	Revision uint64           `json:"revision"`
	Outcome  autosave.Outcome `json:"outcome"`
	Reason   string           `json:"reason,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"workspace": s.svc.Active(),
	})
}

func (s *Server) getWorkspace(c *fiber.Ctx) error {
	key, doc, err := s.svc.Document(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"workspace": key,
		"items":     doc.Items,
		"updatedAt": doc.UpdatedAt,
	})
}

// openWorkspace switches the active workspace (PUT /api/v1/workspace/:key).
func (s *Server) openWorkspace(c *fiber.Ctx) error {
	key := c.Params("key")
	doc, err := s.svc.OpenWorkspace(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"workspace": key,
		"items":     doc.Items,
		"updatedAt": doc.UpdatedAt,
	})
}

func (s *Server) listWorkspaces(c *fiber.Ctx) error {
	list, err := s.svc.ListWorkspaces(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) getFile(c *fiber.Ctx) error {
	f, err := s.svc.GetFile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

// editFile records an edit event (PUT /api/v1/files/:id). It answers as soon
// as the buffer is updated; the save happens later.
func (s *Server) editFile(c *fiber.Ctx) error {
	var req editRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Content == nil {
		return fiber.NewError(fiber.StatusBadRequest, "content is required")
	}

	id := c.Params("id")
	revision, err := s.svc.Edit(id, *req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":       id,
		"revision": revision,
		"status":   s.svc.Buffer.Status(id),
	})
}

func (s *Server) openFile(c *fiber.Ctx) error {
	f, err := s.svc.OpenFile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) closeFile(c *fiber.Ctx) error {
	id := c.Params("id")
	closed, err := s.svc.CloseFile(c.UserContext(), id)
	if !closed && err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  err.Error(),
			"status": s.svc.Buffer.Status(id),
		})
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) createItem(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	var (
		item tree.Item
		err  error
	)
	switch req.Type {
	case tree.TypeFolder:
		item, err = s.svc.CreateFolder(c.UserContext(), req.ParentID, req.Name)
	case tree.TypeFile, "":
		item, err = s.svc.CreateFile(c.UserContext(), req.ParentID, req.Name, req.Content)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "type must be file or folder")
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (s *Server) renameItem(c *fiber.Ctx) error {
	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if err := s.svc.Rename(c.UserContext(), c.Params("id"), req.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteItem(c *fiber.Ctx) error {
	if err := s.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// flush forces pending edits out (POST /api/v1/flush).
func (s *Server) flush(c *fiber.Ctx) error {
	results := s.svc.Flush(c.UserContext())
	out := make([]flushResult, 0, len(results))
	for _, r := range results {
		fr := flushResult{
			FileID:   r.FileID,
			Revision: r.Revision,
			Outcome:  r.Outcome,
			Reason:   r.Reason,
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		out = append(out, fr)
	}
	return c.JSON(fiber.Map{"results": out})
}

func (s *Server) searchFiles(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	hits, err := s.svc.Search(q, language.Language(c.Query("lang")), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return c.JSON(fiber.Map{"query": q, "hits": hits})
}

type statsResponse struct {
	autosave.Report
	OpenFiles    []string `json:"openFiles"`
	PendingFiles []string `json:"pendingFiles"`
	FullText     bool     `json:"fullText"`
}

func (s *Server) stats(c *fiber.Ctx) error {
	resp := statsResponse{
		Report:       s.svc.Report(),
		OpenFiles:    s.svc.Buffer.IDs(),
		PendingFiles: []string{},
		FullText:     s.svc.Index.UsesFTS(),
	}
	if sched := s.svc.Scheduler(); sched != nil {
		resp.PendingFiles = append(resp.PendingFiles, sched.Pending()...)
	}
	return c.JSON(resp)
}
