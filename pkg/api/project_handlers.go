package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farid/collabco/pkg/store"
)

type createProjectRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type updateProjectRequest struct {
	Code string `json:"code"`
}

type projectResponse struct {
	Message string         `json:"message,omitempty"`
	Project *store.Project `json:"project"`
	ID      string         `json:"_id,omitempty"`
	Owner   string         `json:"owner,omitempty"`
}

type projectListResponse struct {
	Projects []*store.Project `json:"projects"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	const route = "/api/projects"

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, route, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondMessage(w, route, http.StatusBadRequest, "project name is required")
		return
	}

	project, err := s.store.CreateProject(r.Context(), req.Name, req.Code, userIDFrom(r.Context()))
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusCreated, projectResponse{
		Message: "project created successfully",
		Project: project,
		ID:      project.ID,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	const route = "/api/projects"

	projects, err := s.store.ListProjectsByOwner(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusOK, projectListResponse{Projects: projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	const route = "/api/projects/{id}"

	// Any authenticated user may read a project by id; collaborators join
	// by shared link and are not owners.
	project, err := s.store.FindProject(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondMessage(w, route, http.StatusNotFound, "project not found")
			return
		}
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusOK, projectResponse{
		Project: project,
		ID:      project.ID,
		Owner:   project.OwnerID,
	})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	const route = "/api/projects/{id}"

	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, route, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := s.store.FindProject(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondMessage(w, route, http.StatusNotFound, "project not found")
			return
		}
		s.respondServerError(w, route, err)
		return
	}
	if project.OwnerID != userIDFrom(r.Context()) {
		s.respondMessage(w, route, http.StatusForbidden, "unauthorized")
		return
	}

	updated, err := s.store.UpdateProjectCode(r.Context(), project.ID, req.Code)
	if err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondJSON(w, route, http.StatusOK, projectResponse{
		Message: "project updated successfully",
		Project: updated,
	})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	const route = "/api/projects/{id}"

	project, err := s.store.FindProject(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondMessage(w, route, http.StatusNotFound, "project not found")
			return
		}
		s.respondServerError(w, route, err)
		return
	}
	if project.OwnerID != userIDFrom(r.Context()) {
		s.respondMessage(w, route, http.StatusForbidden, "unauthorized")
		return
	}

	if err := s.store.DeleteProject(r.Context(), project.ID); err != nil {
		s.respondServerError(w, route, err)
		return
	}

	s.respondMessage(w, route, http.StatusOK, "project deleted successfully")
}
