package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/vet-pain-mcp-server/internal/config"
	"github.com/vet-pain-mcp-server/internal/domain"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (p *stubProvider) GenerateAdvisory(context.Context, string) (string, error) {
	p.calls++
	return p.response, p.err
}

func (p *stubProvider) Model() string { return "stub" }

func newTestLiteServer(t *testing.T, opts ...LiteServerOption) *LiteServer {
	t.Helper()
	logger, _ := test.NewNullLogger()

	server, err := NewLiteServer(litecfg.DefaultLiteConfig(), append([]LiteServerOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	return server
}

func contentText(t *testing.T, result *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(result.Content), i)
	text, ok := result.Content[i].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewLiteServer(t *testing.T) {
	server := newTestLiteServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.Len(t, server.catalog.AllScales(), 11)
	assert.False(t, server.advisory.Enabled())
	assert.Nil(t, server.cache)
}

func TestNewLiteServer_UnsupportedTransport(t *testing.T) {
	cfg := litecfg.DefaultLiteConfig()
	cfg.Transport = "http"

	_, err := NewLiteServer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}

func TestNewLiteServer_AdvisoryWiring(t *testing.T) {
	server := newTestLiteServer(t, WithAdvisoryProvider(&stubProvider{response: "ok"}))

	assert.True(t, server.advisory.Enabled())
	assert.NotNil(t, server.cache)
}

func TestHandleListScales(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  ListScalesParams
		count   int
		isError bool
	}{
		{"all", ListScalesParams{}, 11, false},
		{"dog acute", ListScalesParams{Species: "dog", PainType: "acute"}, 3, false},
		{"cat chronic", ListScalesParams{Species: "cat", PainType: "chronic"}, 2, false},
		{"invalid species", ListScalesParams{Species: "horse"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := server.handleListScales(ctx, nil, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.isError, result.IsError)
			if tt.isError {
				return
			}

			var scales []map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &scales))
			assert.Len(t, scales, tt.count)
		})
	}
}

func TestHandleGetScale(t *testing.T) {
	server := newTestLiteServer(t)

	result, _, err := server.handleGetScale(context.Background(), nil, GetScaleParams{ScaleID: "cbpi"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, contentText(t, result, 0), "dual_subscale_average")

	result, _, err = server.handleGetScale(context.Background(), nil, GetScaleParams{ScaleID: "nope"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, contentText(t, result, 0), "scale not found")
}

func TestHandleInterpretScale(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	t.Run("complete", func(t *testing.T) {
		result, _, err := server.handleInterpretScale(ctx, nil, InterpretScaleParams{
			ScaleID: "fgs",
			Answers: map[string]interface{}{"ears": 0.0, "eyes": 1.0, "muzzle": 1.0, "whiskers": 1.0, "head": 0.0},
		})
		require.NoError(t, err)
		require.False(t, result.IsError, contentText(t, result, 0))
		assert.Contains(t, contentText(t, result, 0), "Score: 3 / 10")
		assert.Contains(t, contentText(t, result, 0), "Needs intervention: false")

		var out InterpretScaleResult
		require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &out))
		assert.True(t, out.Complete)
		assert.Equal(t, "3 / 10", out.Result.Score)
	})

	t.Run("incomplete", func(t *testing.T) {
		result, _, err := server.handleInterpretScale(ctx, nil, InterpretScaleParams{
			ScaleID: "fgs",
			Answers: map[string]interface{}{"ears": 2.0},
		})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, contentText(t, result, 0), "Missing answers: eyes, muzzle, whiskers, head")
	})

	t.Run("informational scale", func(t *testing.T) {
		result, _, err := server.handleInterpretScale(ctx, nil, InterpretScaleParams{ScaleID: "umps"})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, contentText(t, result, 0), "Score: N/A")
	})

	t.Run("invalid answer", func(t *testing.T) {
		result, _, err := server.handleInterpretScale(ctx, nil, InterpretScaleParams{
			ScaleID: "fgs",
			Answers: map[string]interface{}{"ears": 9.0},
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("missing scale id", func(t *testing.T) {
		result, _, err := server.handleInterpretScale(ctx, nil, InterpretScaleParams{})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleCalculateDose(t *testing.T) {
	server := newTestLiteServer(t)

	result, _, err := server.handleCalculateDose(context.Background(), nil, CalculateDoseParams{
		Species:        "dog",
		WeightKg:       10,
		DrugID:         "carprofen_dog",
		PresentationID: "carpro_50",
		Dose:           4.4,
		AgeGroup:       "senior",
	})
	require.NoError(t, err)
	require.False(t, result.IsError, contentText(t, result, 0))

	summary := contentText(t, result, 0)
	assert.Contains(t, summary, "Total dose: 44.00 mg")
	assert.Contains(t, summary, "Administer: 0.88")
	assert.Contains(t, summary, "Senior patient")

	result, _, err = server.handleCalculateDose(context.Background(), nil, CalculateDoseParams{
		WeightKg: -1, DrugID: "carprofen_dog", PresentationID: "carpro_50",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListDrugs(t *testing.T) {
	server := newTestLiteServer(t)

	result, _, err := server.handleListDrugs(context.Background(), nil, ListDrugsParams{Species: "cat"})
	require.NoError(t, err)
	var drugs []domain.Drug
	require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &drugs))
	require.NotEmpty(t, drugs)
	for _, d := range drugs {
		assert.True(t, d.AppliesTo(domain.SpeciesCat), d.ID)
	}

	result, _, err = server.handleListCRIDrugs(context.Background(), nil, ListDrugsParams{Species: "cat"})
	require.NoError(t, err)
	assert.NotContains(t, contentText(t, result, 1), `"lidocaine"`)
}

func TestHandleCalculateCRI(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	t.Run("bag", func(t *testing.T) {
		result, _, err := server.handleCalculateCRI(ctx, nil, CalculateCRIParams{
			Method: "bag", DrugID: "lidocaine", Species: "dog",
			WeightKg: 10, FluidRateMlH: 21, BagVolumeMl: 250,
		})
		require.NoError(t, err)
		require.False(t, result.IsError, contentText(t, result, 0))
		assert.Contains(t, contentText(t, result, 0), "24.00 mg/h")

		var out domain.CRIResult
		require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &out))
		assert.InDelta(t, 14.29, out.VolumeToAddMl, 0.01)
	})

	t.Run("syringe defaults", func(t *testing.T) {
		result, _, err := server.handleCalculateCRI(ctx, nil, CalculateCRIParams{Method: "syringe", WeightKg: 10})
		require.NoError(t, err)
		require.False(t, result.IsError, contentText(t, result, 0))

		var out domain.CRIResult
		require.NoError(t, json.Unmarshal([]byte(contentText(t, result, 1)), &out))
		assert.Equal(t, "fentanyl", out.DrugID)
		assert.Equal(t, 60.0, out.SyringeVolumeMl)
	})

	t.Run("rejected", func(t *testing.T) {
		result, _, err := server.handleCalculateCRI(ctx, nil, CalculateCRIParams{
			Method: "syringe", DrugID: "fentanyl", WeightKg: 10, DesiredConcentrationMgMl: 1,
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, contentText(t, result, 0), "Invalid Concentration")
	})
}

func TestHandleRequestAdvisory(t *testing.T) {
	params := RequestAdvisoryParams{
		Species:   "cat",
		PainType:  "chronic",
		ScaleName: "Feline Musculoskeletal Pain Index (FMPI)",
		Score:     "Total Score: 12",
		Analysis:  "Moderate impairment.",
	}

	t.Run("disabled", func(t *testing.T) {
		server := newTestLiteServer(t)
		result, _, err := server.handleRequestAdvisory(context.Background(), nil, params)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, contentText(t, result, 0), "GEMINI_API_KEY")
	})

	t.Run("structured and cached", func(t *testing.T) {
		provider := &stubProvider{response: `{"clinicalAnalysis":"Chronic pain is likely.","actionSuggestions":"Start an NSAID trial.","importantReminders":"Check renal values."}`}
		server := newTestLiteServer(t, WithAdvisoryProvider(provider))

		result, _, err := server.handleRequestAdvisory(context.Background(), nil, params)
		require.NoError(t, err)
		require.False(t, result.IsError)
		text := contentText(t, result, 0)
		assert.Contains(t, text, "Clinical Analysis:\nChronic pain is likely.")
		assert.Contains(t, text, "Important Reminders:\nCheck renal values.")

		_, _, err = server.handleRequestAdvisory(context.Background(), nil, params)
		require.NoError(t, err)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("provider failure", func(t *testing.T) {
		server := newTestLiteServer(t, WithAdvisoryProvider(&stubProvider{err: errors.New("connection refused")}))
		result, _, err := server.handleRequestAdvisory(context.Background(), nil, params)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		text := contentText(t, result, 0)
		assert.Contains(t, text, "Error contacting the AI:")
		assert.Contains(t, text, "connection refused")
		assert.Contains(t, text, "Check the API key and connection.")
	})
}

func TestReadResource(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		uri      string
		contains string
		wantErr  bool
	}{
		{"scales", ScalesURI, `"id": "cmps-sf"`, false},
		{"scale", ScaleURIPrefix + "fgs", `"whiskers"`, false},
		{"drugs", DrugsURI, `"carprofen_dog"`, false},
		{"cri", CRIDrugsURI, `"defaults"`, false},
		{"unknown scale", ScaleURIPrefix + "nope", "", true},
		{"unknown uri", "vetpain://other", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.readResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: tt.uri}})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, result.Contents, 1)
			assert.Equal(t, tt.uri, result.Contents[0].URI)
			assert.Contains(t, result.Contents[0].Text, tt.contains)
		})
	}
}

func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestPainAssessmentPrompt(t *testing.T) {
	server := newTestLiteServer(t)

	result, err := server.handlePainAssessmentPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "pain_assessment", Arguments: map[string]string{"species": "Cat", "pain_type": "acute"}},
	})
	require.NoError(t, err)
	text := promptText(t, result)
	assert.Contains(t, text, "Assess acute pain in a cat.")
	assert.Contains(t, text, "- fgs:")
	assert.NotContains(t, text, "cmps-sf")
	assert.Contains(t, text, "interpret_scale")

	_, err = server.handlePainAssessmentPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Arguments: map[string]string{"species": "cat", "pain_type": "sudden"}},
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAnalgesicPlanPrompt(t *testing.T) {
	server := newTestLiteServer(t)

	result, err := server.handleAnalgesicPlanPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Arguments: map[string]string{"species": "dog", "weight_kg": "10", "score": "8 / 24"}},
	})
	require.NoError(t, err)
	text := promptText(t, result)
	assert.Contains(t, text, "Plan analgesia for a 10 kg dog.")
	assert.Contains(t, text, "Latest pain score: 8 / 24")
	assert.Contains(t, text, "carprofen_dog")
	assert.Contains(t, text, "lidocaine")

	for _, weight := range []string{"", "-3", "heavy"} {
		_, err := server.handleAnalgesicPlanPrompt(context.Background(), &mcp.GetPromptRequest{
			Params: &mcp.GetPromptParams{Arguments: map[string]string{"species": "dog", "weight_kg": weight}},
		})
		assert.Error(t, err, weight)
	}
}
