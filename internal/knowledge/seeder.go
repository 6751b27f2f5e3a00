package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Seeder indexes the built-in FAQ corpus. It runs at startup so a fresh
// database can answer product questions immediately; upserts keep repeated
// starts idempotent.
//
// Safe for concurrent use.
type Seeder struct {
	store  *Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewSeeder creates a Seeder. A nil logger uses slog.Default().
func NewSeeder(store *Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger}
}

// IndexAll upserts every built-in document, continuing past individual
// failures. Returns how many succeeded, and an error only when all failed.
func (s *Seeder) IndexAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := builtinDocs()
	success := 0
	for _, doc := range docs {
		if err := s.store.Add(ctx, doc); err != nil {
			s.logger.Error("failed to index faq document", "doc_id", doc.ID, "error", err)
			continue
		}
		success++
	}

	s.logger.Debug("faq corpus indexed", "total", len(docs), "success", success)

	if success == 0 {
		return 0, fmt.Errorf("failed to index any of %d faq documents", len(docs))
	}
	return success, nil
}

// builtinDocs is the seed FAQ corpus in the bank's service language.
func builtinDocs() []Document {
	now := time.Now()
	docs := []struct {
		id, topic, content string
	}{
		{
			id:    "faq:deposits",
			topic: "deposits",
			content: `Депозиты ZamanBank.
Депозит «Овернайт»: ставка 12% годовых, минимальная сумма 1 000 000 ₸, срок до 12 месяцев, снятие в любой момент без потери вознаграждения.
Депозит «Выгодный»: ставка 17% годовых, минимальная сумма 500 000 ₸, срок от 3 до 12 месяцев, пополнение разрешено, частичное снятие не предусмотрено.
Вознаграждение капитализируется ежемесячно. Открыть депозит можно в приложении за пару минут.`,
		},
		{
			id:    "faq:cards",
			topic: "cards",
			content: `Карты ZamanBank.
Дебетовая карта выпускается бесплатно, обслуживание 0 ₸ при тратах от 50 000 ₸ в месяц.
Кешбэк до 5% в выбранных категориях, начисляется бонусами раз в месяц.
Снятие наличных в банкоматах банка без комиссии, в чужих банкоматах комиссия 0,5% минимум 200 ₸.
Карту можно заблокировать и перевыпустить в приложении.`,
		},
		{
			id:    "faq:transfers",
			topic: "transfers",
			content: `Переводы.
Переводы между клиентами ZamanBank мгновенные и бесплатные, по номеру телефона или номеру карты.
Переводы в другие банки Казахстана через СМП зачисляются в течение минуты, комиссия 0,3% максимум 1 000 ₸.
Международные переводы SWIFT исполняются 1-3 рабочих дня, комиссия от 0,25%.`,
		},
		{
			id:    "faq:loans",
			topic: "loans",
			content: `Кредиты ZamanBank.
Кредит наличными до 7 000 000 ₸ на срок до 5 лет, ставка от 19,5% годовых, решение за 15 минут по одному документу.
Досрочное погашение без штрафов и комиссий в любой момент.
Рефинансирование кредитов других банков доступно при хорошей кредитной истории.`,
		},
		{
			id:    "faq:fx",
			topic: "fx",
			content: `Обмен валют.
Покупка и продажа USD, EUR и RUB доступны в приложении круглосуточно по биржевому курсу с минимальным спредом.
Валютные счета открываются бесплатно. Курс фиксируется в момент подтверждения операции.`,
		},
		{
			id:    "faq:assistant",
			topic: "assistant",
			content: `Финансовый ассистент.
Ассистент помогает подобрать стратегию накоплений под вашу цель, показывает сводку доходов и расходов, даёт инвестиционные рекомендации по уровню риска и сравнивает вашу цель с целями похожих клиентов.
Отправьте команду /start, чтобы увидеть список функционала.`,
		},
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, Document{
			ID:      d.id,
			Content: d.content,
			Metadata: map[string]string{
				"topic":  d.topic,
				"source": "builtin",
			},
			CreatedAt: now,
		})
	}
	return out
}
