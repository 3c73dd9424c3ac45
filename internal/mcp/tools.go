package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/calder/mnemo/internal/domain/artifact"
	"github.com/calder/mnemo/internal/domain/project"
	"github.com/calder/mnemo/internal/storage"
)

// Project tool payloads.

type CreateProjectParams struct {
	Name        string         `json:"name" jsonschema:"Project name, unique case-insensitively"`
	Description string         `json:"description,omitempty" jsonschema:"Project description"`
	Tags        []string       `json:"tags,omitempty" jsonschema:"Free-form tags"`
	Config      map[string]any `json:"config,omitempty" jsonschema:"Arbitrary project configuration"`
}

type GetProjectParams struct {
	ID   string `json:"id,omitempty" jsonschema:"Project ID (or use name)"`
	Name string `json:"name,omitempty" jsonschema:"Project name, matched case-insensitively"`
}

type ListProjectsParams struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active or archived"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type UpdateProjectParams struct {
	ID          string         `json:"id" jsonschema:"Project ID"`
	Name        *string        `json:"name,omitempty" jsonschema:"New project name"`
	Description *string        `json:"description,omitempty" jsonschema:"New description"`
	Tags        []string       `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	Status      *string        `json:"status,omitempty" jsonschema:"New status: active or archived"`
	Config      map[string]any `json:"config,omitempty" jsonschema:"Replacement configuration"`
}

type DeleteProjectParams struct {
	ID string `json:"id" jsonschema:"Project ID"`
}

type ProjectResponse struct {
	Project       *project.Project `json:"project"`
	ArtifactCount int              `json:"artifact_count"`
}

type ProjectListResponse struct {
	Projects []project.Project `json:"projects"`
}

type DeletedResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Artifact tool payloads.

type StoreArtifactParams struct {
	ProjectID string   `json:"project_id" jsonschema:"Owning project ID"`
	Title     string   `json:"title" jsonschema:"Artifact title, unique within the project case-insensitively"`
	Type      string   `json:"type" jsonschema:"Artifact type: document, code, decision, conversation, or file"`
	Content   string   `json:"content" jsonschema:"Artifact content; oversized content is split automatically"`
	Summary   string   `json:"summary,omitempty" jsonschema:"Short summary used in listings and search snippets"`
	Priority  string   `json:"priority,omitempty" jsonschema:"Priority: core, normal, or reference (default normal)"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
}

type StoreArtifactResponse struct {
	Artifact *artifact.Artifact `json:"artifact"`
	Chunked  bool               `json:"chunked"`
	Parts    int                `json:"parts"`
}

type GetArtifactParams struct {
	ID        string `json:"id,omitempty" jsonschema:"Artifact ID (or use project_id plus title)"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project ID, required when looking up by title"`
	Title     string `json:"title,omitempty" jsonschema:"Artifact title, matched case-insensitively"`
}

type ArtifactResponse struct {
	Artifact *artifact.Artifact `json:"artifact"`
}

type ListArtifactsParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Type      string `json:"type,omitempty" jsonschema:"Filter by artifact type"`
	Priority  string `json:"priority,omitempty" jsonschema:"Filter by priority"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type ListArchivedParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type ArtifactListResponse struct {
	Artifacts []artifact.Summary `json:"artifacts"`
}

type UpdateArtifactParams struct {
	ID       string   `json:"id" jsonschema:"Artifact ID"`
	Title    *string  `json:"title,omitempty" jsonschema:"New title"`
	Content  *string  `json:"content,omitempty" jsonschema:"New content"`
	Summary  *string  `json:"summary,omitempty" jsonschema:"New summary"`
	Priority *string  `json:"priority,omitempty" jsonschema:"New priority"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Replacement tag list"`
}

type ArtifactIDParams struct {
	ID string `json:"id" jsonschema:"Artifact ID"`
}

type ListVersionsParams struct {
	ArtifactID string `json:"artifact_id" jsonschema:"Artifact ID"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of versions"`
}

type VersionListResponse struct {
	Versions []artifact.VersionSummary `json:"versions"`
}

type GetVersionParams struct {
	VersionID string `json:"version_id" jsonschema:"Version snapshot ID"`
}

type VersionResponse struct {
	Version *artifact.Version `json:"version"`
}

type RollbackParams struct {
	ArtifactID string `json:"artifact_id" jsonschema:"Artifact ID"`
	VersionID  string `json:"version_id" jsonschema:"Version snapshot ID to restore from"`
}

type SearchParams struct {
	Query     string `json:"query" jsonschema:"Search query text"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Restrict to one project"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

type SearchResponse struct {
	Results []artifact.SearchResult `json:"results"`
}

// registerTools wires every tool to the storage adapter.
func registerTools(server *sdkmcp.Server, adapter storage.Adapter) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a new project to organize artifacts",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in CreateProjectParams) (*sdkmcp.CallToolResult, ProjectResponse, error) {
		proj := &project.Project{
			Name:        in.Name,
			Description: in.Description,
			Tags:        in.Tags,
			Config:      in.Config,
		}
		if err := adapter.Projects().Create(ctx, proj); err != nil {
			return nil, ProjectResponse{}, mapError(err)
		}
		return nil, ProjectResponse{Project: proj}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a project by ID or by name, with its active artifact count",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in GetProjectParams) (*sdkmcp.CallToolResult, ProjectResponse, error) {
		var proj *project.Project
		var err error
		switch {
		case in.ID != "":
			proj, err = adapter.Projects().Get(ctx, in.ID)
		case in.Name != "":
			proj, err = adapter.Projects().GetByName(ctx, in.Name)
		default:
			return nil, ProjectResponse{}, &APIError{Code: "VALIDATION", Message: "either id or name is required"}
		}
		if err != nil {
			return nil, ProjectResponse{}, mapError(err)
		}
		count, err := adapter.Projects().CountArtifacts(ctx, proj.ID)
		if err != nil {
			return nil, ProjectResponse{}, mapError(err)
		}
		return nil, ProjectResponse{Project: proj, ArtifactCount: count}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List projects, optionally filtered by status",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ListProjectsParams) (*sdkmcp.CallToolResult, ProjectListResponse, error) {
		projects, err := adapter.Projects().List(ctx, project.Filter{
			Status: project.Status(in.Status),
			Limit:  in.Limit,
		})
		if err != nil {
			return nil, ProjectListResponse{}, mapError(err)
		}
		return nil, ProjectListResponse{Projects: projects}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_project",
		Description: "Update a project's fields; omitted fields are left unchanged",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in UpdateProjectParams) (*sdkmcp.CallToolResult, ProjectResponse, error) {
		patch := project.Patch{
			Name:        in.Name,
			Description: in.Description,
			Tags:        in.Tags,
			Config:      in.Config,
		}
		if in.Status != nil {
			status := project.Status(*in.Status)
			patch.Status = &status
		}
		proj, err := adapter.Projects().Update(ctx, in.ID, patch)
		if err != nil {
			return nil, ProjectResponse{}, mapError(err)
		}
		return nil, ProjectResponse{Project: proj}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project and all of its artifacts and version history",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in DeleteProjectParams) (*sdkmcp.CallToolResult, DeletedResponse, error) {
		if err := adapter.Projects().Delete(ctx, in.ID); err != nil {
			return nil, DeletedResponse{}, mapError(err)
		}
		return nil, DeletedResponse{Deleted: true, ID: in.ID}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "store_artifact",
		Description: "Store a new artifact; oversized content is split into parts plus an index automatically",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in StoreArtifactParams) (*sdkmcp.CallToolResult, StoreArtifactResponse, error) {
		art, parts, err := storeArtifact(ctx, adapter.Artifacts(), artifact.CreateRequest{
			ProjectID: in.ProjectID,
			Title:     in.Title,
			Type:      artifact.Type(in.Type),
			Content:   in.Content,
			Summary:   in.Summary,
			Priority:  artifact.Priority(in.Priority),
			Tags:      in.Tags,
		})
		if err != nil {
			return nil, StoreArtifactResponse{}, mapError(err)
		}
		return nil, StoreArtifactResponse{Artifact: art, Chunked: parts > 1, Parts: parts}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_artifact",
		Description: "Get an artifact by ID or by project and title; split content is reassembled and verified",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in GetArtifactParams) (*sdkmcp.CallToolResult, ArtifactResponse, error) {
		var art *artifact.Artifact
		var err error
		switch {
		case in.ID != "":
			art, err = adapter.Artifacts().Get(ctx, in.ID)
		case in.ProjectID != "" && in.Title != "":
			art, err = adapter.Artifacts().GetByTitle(ctx, in.ProjectID, in.Title)
		default:
			return nil, ArtifactResponse{}, &APIError{Code: "VALIDATION", Message: "either id or project_id plus title is required"}
		}
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		art, err = readArtifact(ctx, adapter.Artifacts(), art)
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		return nil, ArtifactResponse{Artifact: art}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_artifacts",
		Description: "List a project's active artifacts, core priority first, then by update recency",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ListArtifactsParams) (*sdkmcp.CallToolResult, ArtifactListResponse, error) {
		artifacts, err := adapter.Artifacts().List(ctx, in.ProjectID, artifact.ListFilter{
			Type:     artifact.Type(in.Type),
			Priority: artifact.Priority(in.Priority),
			Limit:    in.Limit,
		})
		if err != nil {
			return nil, ArtifactListResponse{}, mapError(err)
		}
		return nil, ArtifactListResponse{Artifacts: artifacts}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_archived_artifacts",
		Description: "List a project's archived artifacts, most recently archived first",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ListArchivedParams) (*sdkmcp.CallToolResult, ArtifactListResponse, error) {
		artifacts, err := adapter.Artifacts().ListArchived(ctx, in.ProjectID, in.Limit)
		if err != nil {
			return nil, ArtifactListResponse{}, mapError(err)
		}
		return nil, ArtifactListResponse{Artifacts: artifacts}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_artifact",
		Description: "Update an artifact; any effective change snapshots the prior state and bumps the version",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in UpdateArtifactParams) (*sdkmcp.CallToolResult, ArtifactResponse, error) {
		patch := artifact.Patch{
			Title:   in.Title,
			Content: in.Content,
			Summary: in.Summary,
			Tags:    in.Tags,
		}
		if in.Priority != nil {
			priority := artifact.Priority(*in.Priority)
			patch.Priority = &priority
		}
		art, err := adapter.Artifacts().Update(ctx, in.ID, patch)
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		return nil, ArtifactResponse{Artifact: art}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "archive_artifact",
		Description: "Archive an artifact, hiding it from listings and search; already-archived artifacts are left untouched",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ArtifactIDParams) (*sdkmcp.CallToolResult, ArtifactResponse, error) {
		art, err := adapter.Artifacts().Archive(ctx, in.ID)
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		return nil, ArtifactResponse{Artifact: art}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "restore_artifact",
		Description: "Restore an archived artifact to active; already-active artifacts are left untouched",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ArtifactIDParams) (*sdkmcp.CallToolResult, ArtifactResponse, error) {
		art, err := adapter.Artifacts().Restore(ctx, in.ID)
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		return nil, ArtifactResponse{Artifact: art}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_artifact_versions",
		Description: "List an artifact's version snapshots, most recent counter value first",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ListVersionsParams) (*sdkmcp.CallToolResult, VersionListResponse, error) {
		versions, err := adapter.Artifacts().Versions(ctx, in.ArtifactID, in.Limit)
		if err != nil {
			return nil, VersionListResponse{}, mapError(err)
		}
		return nil, VersionListResponse{Versions: versions}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_artifact_version",
		Description: "Get a single version snapshot with its full content",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in GetVersionParams) (*sdkmcp.CallToolResult, VersionResponse, error) {
		version, err := adapter.Artifacts().GetVersion(ctx, in.VersionID)
		if err != nil {
			return nil, VersionResponse{}, mapError(err)
		}
		return nil, VersionResponse{Version: version}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "rollback_artifact",
		Description: "Restore an artifact's title, content, summary and priority from a version snapshot; the version counter moves forward",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in RollbackParams) (*sdkmcp.CallToolResult, ArtifactResponse, error) {
		art, err := adapter.Artifacts().Rollback(ctx, in.ArtifactID, in.VersionID)
		if err != nil {
			return nil, ArtifactResponse{}, mapError(err)
		}
		return nil, ArtifactResponse{Artifact: art}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_artifacts",
		Description: "Full-text search across active artifacts' titles, content and summaries",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in SearchParams) (*sdkmcp.CallToolResult, SearchResponse, error) {
		results, err := adapter.Search(ctx, in.Query, storage.SearchOptions{
			ProjectID: in.ProjectID,
			Limit:     in.Limit,
		})
		if err != nil {
			return nil, SearchResponse{}, mapError(err)
		}
		return nil, SearchResponse{Results: results}, nil
	})
}
