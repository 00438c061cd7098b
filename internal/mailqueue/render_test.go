package mailqueue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

func encode(t *testing.T, msg domain.MailMessage) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func TestRenderWelcome(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeWelcome,
		To:   "221234567@students.nust.na",
		Data: domain.WelcomeMailData{FullName: "Selma Nakale", StudentNumber: "221234567", SiteURL: "https://timetable.example"},
	})

	out, err := Render(body)
	require.NoError(t, err)
	assert.Equal(t, "221234567@students.nust.na", out.To)
	assert.Contains(t, out.HTML, "Hi Selma Nakale,")
	assert.Contains(t, out.HTML, "221234567")
}

func TestRenderShareScheduleEscapes(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeShareSchedule,
		To:   "friend@example.com",
		Data: domain.ShareScheduleMailData{
			SenderName:   "Tuli",
			ScheduleName: "<b>Sem2</b>",
			Semester:     2,
			Year:         2025,
			Link:         "https://timetable.example/shared/4?token=abc",
		},
	})

	out, err := Render(body)
	require.NoError(t, err)
	assert.Equal(t, "Tuli shared a timetable with you", out.Subject)
	assert.Contains(t, out.HTML, "&lt;b&gt;Sem2&lt;/b&gt;")
	assert.Contains(t, out.HTML, "Semester 2, 2025")
	assert.Contains(t, out.HTML, `href="https://timetable.example/shared/4?token=abc"`)
}

func TestRenderRejects(t *testing.T) {
	_, err := Render([]byte(`not json`))
	assert.Error(t, err)

	_, err = Render(encode(t, domain.MailMessage{Type: "reset_password", To: "a@b.c"}))
	assert.Error(t, err)

	_, err = Render(encode(t, domain.MailMessage{Type: domain.MailTypeWelcome}))
	assert.Error(t, err)
}
