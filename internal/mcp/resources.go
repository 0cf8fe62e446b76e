package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// Resource URIs served by the lite server
const (
	ScalesURI        = "vetpain://scales"
	ScaleURIPrefix   = "vetpain://scales/"
	ScaleURITemplate = "vetpain://scales/{id}"
	DrugsURI         = "vetpain://drugs"
	CRIDrugsURI      = "vetpain://cri"
	resourceMIMEType = "application/json"
)

// registerMCPResources exposes the reference catalog as read-only resources.
func (s *LiteServer) registerMCPResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ScalesURI,
		Name:        "scales",
		Description: "Summary of every pain scale in catalog order",
		MIMEType:    resourceMIMEType,
	}, s.readResource)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: ScaleURITemplate,
		Name:        "scale",
		Description: "A pain scale with its questions, options and scoring rule",
		MIMEType:    resourceMIMEType,
	}, s.readResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         DrugsURI,
		Name:        "drugs",
		Description: "Analgesic drugs with dose ranges, presentations and adjustment factors",
		MIMEType:    resourceMIMEType,
	}, s.readResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         CRIDrugsURI,
		Name:        "cri",
		Description: "Constant rate infusion drugs and calculator defaults",
		MIMEType:    resourceMIMEType,
	}, s.readResource)

	s.logger.WithField("resource_count", 4).Debug("Registered MCP resources")
}

// resolveResource returns the catalog content behind a URI
func (s *LiteServer) resolveResource(uri string) (interface{}, error) {
	switch {
	case uri == ScalesURI:
		scales := s.catalog.AllScales()
		out := make([]scaleSummary, 0, len(scales))
		for _, scale := range scales {
			out = append(out, summarizeScale(scale))
		}
		return out, nil
	case strings.HasPrefix(uri, ScaleURIPrefix):
		return s.catalog.Scale(strings.TrimPrefix(uri, ScaleURIPrefix))
	case uri == DrugsURI:
		return s.catalog.Drugs(""), nil
	case uri == CRIDrugsURI:
		return map[string]interface{}{
			"drugs":    s.catalog.CRIDrugs(""),
			"defaults": s.catalog.CRIDefaults(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown resource %s", uri)
	}
}

func (s *LiteServer) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	s.logger.WithField("uri", uri).Debug("Reading resource")

	content, err := s.resolveResource(uri)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"uri": uri, "error": err}).Warn("Resource not found")
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		}},
	}, nil
}
