package domain

// LinkStats агрегированная аналитика по ссылке
type LinkStats struct {
	TotalClicks int64            `json:"total_clicks"`
	ClickCount  int64            `json:"click_count"`
	BotClicks   int64            `json:"bot_clicks"`
	ClicksByDay map[string]int64 `json:"clicks_by_day"`
	ByCountry   map[string]int64 `json:"by_country"`
	ByDevice    map[string]int64 `json:"by_device"`
	ByBrowser   map[string]int64 `json:"by_browser"`
	ByOS        map[string]int64 `json:"by_os"`
	ByReferrer  map[string]int64 `json:"by_referrer"`
}
