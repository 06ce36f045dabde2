package telegram

import (
	tg "github.com/m3rciful/regbot/core/telegram"
	"github.com/m3rciful/regbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// BuildRegistry assembles the command and callback surface.
func BuildRegistry(h *Handlers) *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Ro'yxatdan o'tishni boshlash",
	})
	reg.RegisterCommand("/restart", commands.Command{
		Handler:     h.Restart,
		Description: "Ro'yxatdan o'tishni qaytadan boshlash",
		Hidden:      true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.Cancel,
		Description: "Amalni bekor qilish",
	})

	reg.RegisterCommand("/admin", commands.Command{
		Handler:      h.AdminPanel,
		Description:  "Admin panel",
		OperatorOnly: true,
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:      h.Stats,
		Description:  "Statistika",
		OperatorOnly: true,
	})
	reg.RegisterCommand("/users", commands.Command{
		Handler:      h.Users,
		Description:  "Foydalanuvchilar ro'yxati",
		OperatorOnly: true,
	})
	reg.RegisterCommand("/export", commands.Command{
		Handler:      h.Export,
		Description:  "Ma'lumotlarni CSV qilib olish",
		OperatorOnly: true,
	})

	_ = reg.RegisterCallback(cbAdminStats, operatorGate(h, h.Stats))
	_ = reg.RegisterCallback(cbAdminUsers, operatorGate(h, h.Users))
	_ = reg.RegisterCallback(cbAdminExport, operatorGate(h, h.Export))
	_ = reg.RegisterCallback(cbUsersPage, operatorGate(h, h.UsersPageCallback))

	reg.SetTextFallback(h.StartHint)

	return reg
}

// operatorGate drops callback presses from anyone outside the operator
// set; inline buttons can be forwarded to arbitrary chats.
func operatorGate(h *Handlers, next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !h.isOperator(sender.ID) {
			return c.Respond(&tele.CallbackResponse{Text: "Ruxsat yo'q"})
		}
		return next(c)
	}
}
