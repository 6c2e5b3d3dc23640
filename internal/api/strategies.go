package api

import (
	"net/http"
	"sort"

	"github.com/velahq/vela/internal/api/response"
)

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PriceHistory int      `json:"price_history"`
	Indicators   []string `json:"indicators,omitempty"`
}

// handleListStrategies enumerates the registered strategies and their
// data requirements.
func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	all := s.runner.Strategies().GetAll()

	infos := make([]StrategyInfo, 0, len(all))
	for _, st := range all {
		req := st.RequiredData()
		infos = append(infos, StrategyInfo{
			Name:         st.Name(),
			Description:  st.Description(),
			PriceHistory: req.PriceHistory,
			Indicators:   req.Indicators,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": infos,
		"count":      len(infos),
	})
}
