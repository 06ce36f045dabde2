package flow

// Button labels shown on reply keyboards. The manual entry label is
// matched literally at the phone step.
const (
	ContactButton     = "📱 Telefon raqamini yuborish"
	ManualEntryButton = "✏️ Raqamni qo'lda kiritish"
)

const (
	msgBadName = "❌ Iltimos, to'g'ri ism kiriting (faqat harflardan iborat bo'lsin)"

	msgAskDistrict = "📍 Toshkent shahrining qaysi tumanida yashaysiz?"
	msgBadDistrict = "❌ Iltimos, ro'yxatdagi tumanlardan birini tanlang."

	msgAskPhone = "✅ *2-qadam:*\n\n" +
		"Telefon raqamingizni kiriting:\n\n" +
		"📱 _Telefon raqamini yuborish_ tugmasini bosing yoki\n" +
		"📝 _Raqamni qo'lda kiritish_ tugmasini bosib, raqamingizni kiriting\n\n" +
		"Namuna: `901234567`"

	msgManualEntry = "📝 Telefon raqamingizni kiriting:\n" +
		"Namuna: `901234567` yoki `+998901234567`"

	msgBadPhone = "❌ Noto'g'ri telefon raqami formati!\n\n" +
		"✅ Qabul qilinadigan formatlar:\n" +
		"• `901234567`\n" +
		"• `+998901234567`\n" +
		"• `998901234567`"

	msgCancelled = "❌ Ro'yxatdan o'tish bekor qilindi.\n\n" +
		"Qaytadan boshlash uchun /start ni bosing."

	msgNothingInProgress = "⚠️ Hozir hech qanday amal bajarilmagan."
)
