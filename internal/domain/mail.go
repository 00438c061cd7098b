package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	MailTypeWelcome       = "welcome"
	MailTypeShareSchedule = "share_schedule"
)

type WelcomeMailData struct {
	FullName      string `json:"fullName"`
	StudentNumber string `json:"studentNumber"`
	SiteURL       string `json:"siteURL"`
}

type ShareScheduleMailData struct {
	SenderName   string `json:"senderName"`
	ScheduleName string `json:"scheduleName"`
	Semester     int32  `json:"semester"`
	Year         int32  `json:"year"`
	Link         string `json:"link"`
}
