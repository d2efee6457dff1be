package transfer

type PostCreation struct {
	Caption          string  `json:"caption"`
	Title            string  `json:"title"`
	PostType         string  `json:"post_type"`
	MediaURL         string  `json:"media_url"`
	ScheduledAt      string  `json:"scheduled_at"`
	SelectedAccounts []int64 `json:"selected_accounts"`
	AIGenerated      bool    `json:"ai_generated"`
	AIPrompt         string  `json:"ai_prompt"`
}

type PostReschedule struct {
	PostID      int64  `json:"post_id"`
	ScheduledAt string `json:"scheduled_at"`
}
