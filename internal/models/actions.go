package models

import (
	"encoding/json"
	"time"
)

// UpdateAction is one instruction in a versioned payment update. The
// concrete types below mirror the platform's update action wire format;
// each one injects its "action" discriminator when marshaled so the
// planner can build them as plain literals.
type UpdateAction interface {
	Action() string
}

type AddInterfaceInteractionAction struct {
	Status    string    `json:"status,omitempty"`
	Type      string    `json:"type,omitempty"`
	Payload   string    `json:"notification"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a AddInterfaceInteractionAction) Action() string { return "addInterfaceInteraction" }

func (a AddInterfaceInteractionAction) MarshalJSON() ([]byte, error) {
	type alias AddInterfaceInteractionAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type AddTransactionAction struct {
	Type          TransactionType  `json:"type"`
	State         TransactionState `json:"state"`
	InteractionID string           `json:"interactionId,omitempty"`
	Amount        *Amount          `json:"amount,omitempty"`
	Timestamp     *time.Time       `json:"timestamp,omitempty"`
}

func (a AddTransactionAction) Action() string { return "addTransaction" }

func (a AddTransactionAction) MarshalJSON() ([]byte, error) {
	type alias AddTransactionAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type ChangeTransactionStateAction struct {
	TransactionID string           `json:"transactionId"`
	State         TransactionState `json:"state"`
}

func (a ChangeTransactionStateAction) Action() string { return "changeTransactionState" }

func (a ChangeTransactionStateAction) MarshalJSON() ([]byte, error) {
	type alias ChangeTransactionStateAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type ChangeTransactionTimestampAction struct {
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func (a ChangeTransactionTimestampAction) Action() string { return "changeTransactionTimestamp" }

func (a ChangeTransactionTimestampAction) MarshalJSON() ([]byte, error) {
	type alias ChangeTransactionTimestampAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type SetKeyAction struct {
	Key string `json:"key"`
}

func (a SetKeyAction) Action() string { return "setKey" }

func (a SetKeyAction) MarshalJSON() ([]byte, error) {
	type alias SetKeyAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type SetMethodInfoMethodAction struct {
	Method string `json:"method"`
}

func (a SetMethodInfoMethodAction) Action() string { return "setMethodInfoMethod" }

func (a SetMethodInfoMethodAction) MarshalJSON() ([]byte, error) {
	type alias SetMethodInfoMethodAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

type SetMethodInfoNameAction struct {
	Name string `json:"name"`
}

func (a SetMethodInfoNameAction) Action() string { return "setMethodInfoName" }

func (a SetMethodInfoNameAction) MarshalJSON() ([]byte, error) {
	type alias SetMethodInfoNameAction
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{Action: a.Action(), alias: alias(a)})
}

// MarshalActions renders an action list for logs and error reports.
func MarshalActions(actions []UpdateAction) string {
	raw, err := json.Marshal(actions)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
