package agi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"campuscrave/catalog"
	"campuscrave/globals"
	"campuscrave/models"
	"campuscrave/utils"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

type Recommendation struct {
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	ProductID string `json:"productId,omitempty"`
}

// Generator produces schema-constrained JSON for a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error)
}

var recommendationSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"name":   {Type: "STRING"},
			"reason": {Type: "STRING"},
		},
		Required: []string{"name", "reason"},
	},
}

type Recommender struct {
	gen Generator
}

func NewRecommender(gen Generator) *Recommender {
	return &Recommender{gen: gen}
}

// Recommend picks up to two items from menu that fit request. Any failure of the model
// call yields an empty list.
func (r *Recommender) Recommend(ctx context.Context, request string, menu []models.Product) []Recommendation {
	if r.gen == nil || strings.TrimSpace(request) == "" || len(menu) == 0 {
		return []Recommendation{}
	}

	text, err := r.gen.GenerateJSON(ctx, buildPrompt(request, menu), recommendationSchema)
	if err != nil {
		log.WithError(err).Warn("recommendation request failed")
		return []Recommendation{}
	}

	var recs []Recommendation
	if err := json.Unmarshal([]byte(text), &recs); err != nil {
		log.WithError(err).Warn("recommendation response was not the expected JSON")
		return []Recommendation{}
	}
	if len(recs) > globals.MaxRecommendations {
		recs = recs[:globals.MaxRecommendations]
	}
	for i := range recs {
		for _, p := range menu {
			if strings.EqualFold(p.Name, recs[i].Name) {
				recs[i].ProductID = p.ID
				break
			}
		}
	}
	return recs
}

type menuEntry struct {
	Name  string  `json:"name"`
	Desc  string  `json:"desc"`
	Price float64 `json:"price"`
}

func buildPrompt(request string, menu []models.Product) string {
	entries := make([]menuEntry, 0, len(menu))
	for _, p := range menu {
		entries = append(entries, menuEntry{Name: p.Name, Desc: p.Description, Price: p.Price})
	}
	data, _ := json.Marshal(entries)
	return fmt.Sprintf("Based on this menu: %s\nUser request: %q\nRecommend %d items that best fit the request. Explain why concisely.",
		data, request, globals.MaxRecommendations)
}

type Handler struct {
	Recommender *Recommender
	Catalog     *catalog.Store
}

type recommendInput struct {
	Prompt string `json:"prompt"`
}

// Recommend handles POST /api/recommendations
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input recommendInput
	if err := utils.DecodeJSON(r, &input); err != nil || strings.TrimSpace(input.Prompt) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	recs := h.Recommender.Recommend(r.Context(), input.Prompt, h.Catalog.Browse(""))
	utils.SendResponse(w, http.StatusOK, recs, "", nil)
}
