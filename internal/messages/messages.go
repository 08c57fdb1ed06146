package messages

import "fmt"

// User-facing texts. The product speaks Russian only.

const (
	DreamTextLength = "Текст сна должен быть подходящей длины."
	AIUnavailable   = "К сожалению, сервис интерпретации снов временно недоступен. Попробуйте позже."

	Onboarding = "Привет! Чтобы пользоваться сонником, пожалуйста, войди или зарегистрируйся на нашем сайте. Это нужно сделать один раз."

	DialogStart = "Я готов слушать. Опиши свой сон, и я помогу его разгадать."
	DialogEnd   = "Диалог завершен. Если захочешь обсудить другой сон, просто нажми «Начать диалог»."

	CouldNotStart    = "Прости, не смог начать толкование. Попробуй позже."
	CouldNotFollowUp = "Прости, не смог обработать твой вопрос. Попробуй еще раз."

	HistoryIntro = "Вот твоя история снов. Нажми на сон, чтобы посмотреть полную переписку."
	HistoryEmpty = "Твоя история снов пока пуста. Расскажи мне свой первый сон!"

	DeleteConfirm = "Вы уверены, что хотите удалить этот сон? Это действие необратимо."
	DeleteDone    = "✅ Сон успешно удален."
	DeleteFailed  = "❌ Не удалось удалить сон. Попробуйте позже."

	SubscribeHint = "Лимит толкований исчерпан. Оформи Premium, чтобы толковать сны без ограничений."

	PaymentAlreadyProcessed = "Этот платеж уже был обработан."
	PaymentSucceeded        = "Оплата прошла успешно! Premium активирован, лимит толкований обновлен."

	ErrorDefault = "Произошла ошибка сервиса. Попробуйте снова."

	PaymentInvalid = "Некорректный платеж"
)

// Inline keyboard labels.
const (
	BtnStartDialog   = "🌙 Начать диалог"
	BtnEndDialog     = "Завершить диалог"
	BtnHistory       = "📖 История снов"
	BtnProfile       = "👤 Профиль"
	BtnOpenApp       = "Открыть приложение"
	BtnSubscribe     = "⭐ Оформить Premium"
	BtnContinue      = "Продолжить диалог"
	BtnDelete        = "🗑 Удалить"
	BtnConfirmDelete = "Да, удалить"
	BtnBack          = "⬅️ Назад"
	BtnPrevPage      = "⬅️"
	BtnNextPage      = "➡️"
)

func WelcomeBack(name string) string {
	return fmt.Sprintf("С возвращением, %s! Что будем делать?", name)
}

func AccountLinked(name string) string {
	return fmt.Sprintf("Отлично, %s! Твой аккаунт успешно связан. Теперь я готов слушать твои сны.", name)
}

func DataError(detail string) string {
	return fmt.Sprintf("Ошибка в данных: %s", detail)
}

func Profile(name string, premium bool, remaining int) string {
	plan := "Бесплатный"
	if premium {
		plan = "Premium"
	}
	return fmt.Sprintf("👤 %s\nТариф: %s\nОсталось толкований: %d", name, plan, remaining)
}

func RemainingLine(remaining int) string {
	return fmt.Sprintf("Осталось толкований: %d", remaining)
}

func HistoryPageFooter(page, totalPages int) string {
	return fmt.Sprintf("Страница %d из %d", page, totalPages)
}
