package telegram

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/regbot/internal/records"
)

func sampleRecords(n int) []records.Record {
	recs := make([]records.Record, 0, n)
	districts := []string{"Chilonzor", "Yunusobod", "Sergeli"}
	for i := 0; i < n; i++ {
		recs = append(recs, records.Record{
			Ordinal:     i + 1,
			Name:        "User" + string(rune('A'+i%26)),
			District:    districts[i%len(districts)],
			Phone:       "+998900000000",
			UserID:      int64(1000 + i),
			DisplayName: "Display Name",
			Handle:      "handle",
			Date:        "2025-03-14",
			Time:        "10:30:00",
			Status:      records.StatusRegistered,
		})
	}
	return recs
}

func TestFormatStatsEmpty(t *testing.T) {
	text := formatStats(nil)
	assert.Contains(t, text, "Hali hech qanday foydalanuvchi")
}

func TestFormatStatsCountsDistricts(t *testing.T) {
	recs := sampleRecords(7)
	text := formatStats(recs)

	assert.Contains(t, text, "7 ta")
	// 7 records over 3 districts: Chilonzor gets 3, the others 2.
	assert.Contains(t, text, "Chilonzor: 3 ta")
	assert.Contains(t, text, "Yunusobod: 2 ta")
	assert.Contains(t, text, "Sergeli: 2 ta")
	// Most frequent district listed first.
	assert.Less(t, strings.Index(text, "Chilonzor"), strings.Index(text, "Yunusobod"))
	assert.Contains(t, text, "Oxirgi 3 ta")
}

func TestFormatUsersPageClampsRange(t *testing.T) {
	recs := sampleRecords(25)

	_, page, pages := formatUsersPage(recs, 99, 10)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 3, page)

	_, page, _ = formatUsersPage(recs, -1, 10)
	assert.Equal(t, 1, page)
}

func TestFormatUsersPageContents(t *testing.T) {
	recs := sampleRecords(25)

	text, page, pages := formatUsersPage(recs, 2, 10)
	assert.Equal(t, 2, page)
	assert.Equal(t, 3, pages)
	assert.Contains(t, text, "(2/3)")
	// Second page holds ordinals 11 through 20.
	assert.Contains(t, text, "*11.*")
	assert.Contains(t, text, "*20.*")
	assert.NotContains(t, text, "*10.*")
	assert.NotContains(t, text, "*21.*")
	assert.Contains(t, text, "*Jami:* 25 ta")
}

func TestFormatUsersPageEmpty(t *testing.T) {
	text, page, pages := formatUsersPage(nil, 1, 10)
	assert.Contains(t, text, "Hali hech qanday")
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, pages)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 3, totalPages(25, 10))
}

func TestExportCSVRoundTrips(t *testing.T) {
	recs := sampleRecords(3)
	data, err := exportCSV(recs)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "№", rows[0][0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Chilonzor", rows[1][2])
	assert.Equal(t, records.StatusRegistered, rows[1][9])
	assert.Equal(t, "3", rows[3][0])
}
