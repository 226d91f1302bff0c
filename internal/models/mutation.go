package models

import "encoding/json"

// Статусы записи в очереди мутаций
const (
	MutationStatusPending = "pending"
	MutationStatusFailed  = "failed"
)

// MutationRecord представляет одну запись локального outbox.
// QueueID монотонно растет и задает FIFO порядок отправки.
// Запись удаляется из очереди только после подтверждения сервером,
// либо когда откатился сам локальный оптимистичный апдейт.
type MutationRecord struct {
	QueueID   uint64          `json:"queue_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"` // unix миллисекунды
	Status    string          `json:"status"`
	LastError string          `json:"last_error,omitempty"`
}

// MutationPayload — общие поля payload, нужные для корреляции после push.
// Каждый payload несет client_id записи, которую он создает или меняет.
type MutationPayload struct {
	ClientID string `json:"client_id,omitempty"`
}

// ClientID извлекает client_id из payload мутации.
// Возвращает пустую строку, если payload его не несет или не парсится.
func (m *MutationRecord) ClientID() string {
	var p MutationPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return ""
	}
	return p.ClientID
}
