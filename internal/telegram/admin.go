package telegram

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/m3rciful/regbot/core/telegram/callbacks"
	"github.com/m3rciful/regbot/core/telegram/format"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"
	"github.com/m3rciful/regbot/core/telegram/keyboard"
	"github.com/m3rciful/regbot/internal/records"

	tele "gopkg.in/telebot.v4"
)

// Callback keys for the operator surface.
const (
	cbAdminStats  = "admin_stats"
	cbAdminUsers  = "admin_users"
	cbAdminExport = "admin_export"
	cbUsersPage   = "users_page"
)

// AdminPanel shows the operator menu with inline shortcuts.
func (h *Handlers) AdminPanel(c tele.Context) error {
	storeOK := true
	if _, err := h.store.RowCount(tghelpers.BuildContext(c)); err != nil {
		storeOK = false
	}

	storeLine := "✅ Ulangan"
	if !storeOK {
		storeLine = "❌ Ulanmagan"
	}
	text := "👋 *Xush kelibsiz, Admin!*\n\n" +
		"🤖 *Admin panel:*\n" +
		"📊 /stats - Statistika\n" +
		"👥 /users - Foydalanuvchilar\n" +
		"📁 /export - Ma'lumotlarni yuklab olish\n\n" +
		"📈 *Holat:*\n" +
		"• Baza: " + storeLine + "\n" +
		fmt.Sprintf("• Adminlar soni: %d\n", len(h.operators)) +
		"• Bot ishlayapti: ✅"

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📊 Statistika", Unique: cbAdminStats},
			{Text: "👥 Foydalanuvchilar", Unique: cbAdminUsers},
		},
		[]keyboard.InlineBtn{
			{Text: "📁 Export", Unique: cbAdminExport},
		},
	)
	return tghelpers.SendMD(c, text, markup)
}

// Stats reports totals, per-district counts and the last three records.
func (h *Handlers) Stats(c tele.Context) error {
	recs, err := h.store.ReadAll(tghelpers.BuildContext(c))
	if err != nil {
		return tghelpers.SendText(c, "❌ Statistika olishda xatolik: "+err.Error())
	}
	return tghelpers.SendMD(c, formatStats(recs))
}

// Users lists the most recent registrations with prev/next pagination.
func (h *Handlers) Users(c tele.Context) error {
	recs, err := h.store.ReadAll(tghelpers.BuildContext(c))
	if err != nil {
		return tghelpers.SendText(c, "❌ Foydalanuvchilar ro'yxatini olishda xatolik: "+err.Error())
	}
	// Open on the last page, newest entries.
	page := totalPages(len(recs), h.pageSize)
	text, markup := h.usersPage(recs, page)
	return tghelpers.SendMD(c, text, markup)
}

// UsersPageCallback flips the /users listing to the requested page.
func (h *Handlers) UsersPageCallback(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Noma'lum sahifa"})
	}
	recs, err := h.store.ReadAll(tghelpers.BuildContext(c))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Xatolik"})
	}
	text, markup := h.usersPage(recs, page)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (h *Handlers) usersPage(recs []records.Record, page int) (string, *tele.ReplyMarkup) {
	text, page, pages := formatUsersPage(recs, page, h.pageSize)
	if pages <= 1 {
		return text, nil
	}

	var row []keyboard.InlineBtn
	if page > 1 {
		row = append(row, keyboard.InlineBtn{
			Text:   "⬅️ Oldingi",
			Unique: cbUsersPage,
			Data:   strconv.Itoa(page - 1),
		})
	}
	if page < pages {
		row = append(row, keyboard.InlineBtn{
			Text:   "Keyingi ➡️",
			Unique: cbUsersPage,
			Data:   strconv.Itoa(page + 1),
		})
	}
	return text, keyboard.InlineButtonsRows(row)
}

// Export sends the whole table as a CSV document.
func (h *Handlers) Export(c tele.Context) error {
	recs, err := h.store.ReadAll(tghelpers.BuildContext(c))
	if err != nil {
		return tghelpers.SendText(c, "❌ Export qilishda xatolik: "+err.Error())
	}
	if len(recs) == 0 {
		return tghelpers.SendText(c, "📁 Eksport qilinadigan ma'lumot yo'q.")
	}

	data, err := exportCSV(recs)
	if err != nil {
		return tghelpers.SendText(c, "❌ Export qilishda xatolik: "+err.Error())
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "registrations.csv",
		Caption:  fmt.Sprintf("📁 Jami: %d ta ro'yxat", len(recs)),
	}
	return tghelpers.SendDocument(c, doc)
}

func formatStats(recs []records.Record) string {
	if len(recs) == 0 {
		return "📊 *Statistika:*\n\n❌ Hali hech qanday foydalanuvchi ro'yxatdan o'tmagan."
	}

	byDistrict := make(map[string]int)
	for _, r := range recs {
		if r.District != "" {
			byDistrict[r.District]++
		}
	}

	var b strings.Builder
	b.WriteString("📊 *Statistika:*\n\n")
	fmt.Fprintf(&b, "👥 *Jami ro'yxatdan o'tganlar:* %d ta\n\n", len(recs))

	if len(byDistrict) > 0 {
		b.WriteString("📍 *Tumanlar bo'yicha:*\n")
		type districtCount struct {
			name  string
			count int
		}
		counts := make([]districtCount, 0, len(byDistrict))
		for name, count := range byDistrict {
			counts = append(counts, districtCount{name, count})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].name < counts[j].name
		})
		for _, dc := range counts {
			fmt.Fprintf(&b, "  • %s: %d ta\n", format.EscapeV1(dc.name), dc.count)
		}
	}

	b.WriteString("\n⏰ *Oxirgi 3 ta ro'yxatdan o'tgan:*\n")
	last := recs
	if len(last) > 3 {
		last = last[len(last)-3:]
	}
	for i, r := range last {
		fmt.Fprintf(&b, "  %d. %s - %s - %s\n", i+1, format.EscapeV1(r.Name), format.EscapeV1(r.District), r.Phone)
	}
	return b.String()
}

// formatUsersPage renders one page of the listing. It clamps the page
// into range and returns the effective page and total page count.
func formatUsersPage(recs []records.Record, page, pageSize int) (string, int, int) {
	if len(recs) == 0 {
		return "📋 *Foydalanuvchilar ro'yxati:*\n\n❌ Hali hech qanday foydalanuvchi ro'yxatdan o'tmagan.", 1, 1
	}

	pages := totalPages(len(recs), pageSize)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(recs) {
		end = len(recs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Foydalanuvchilar ro'yxati* (%d/%d):\n\n", page, pages)
	for _, r := range recs[start:end] {
		fmt.Fprintf(&b, "*%d.* %s - %s\n", r.Ordinal, format.EscapeV1(r.Name), format.EscapeV1(r.District))
		fmt.Fprintf(&b, "   📱 %s\n", r.Phone)
		fmt.Fprintf(&b, "   📅 %s %s\n", r.Date, r.Time)
		b.WriteString("   ────────\n")
	}
	fmt.Fprintf(&b, "\n*Jami:* %d ta foydalanuvchi", len(recs))
	return b.String(), page, pages
}

func totalPages(total, pageSize int) int {
	if total <= 0 {
		return 1
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

func exportCSV(recs []records.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"№", "Ism", "Tuman", "Telefon", "User ID", "To'liq Ism", "Username", "Sana", "Vaqt", "Status"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range recs {
		row := []string{
			strconv.Itoa(r.Ordinal),
			r.Name,
			r.District,
			r.Phone,
			strconv.FormatInt(r.UserID, 10),
			r.DisplayName,
			r.Handle,
			r.Date,
			r.Time,
			r.Status,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
