/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

// WebhookEvent is the subset of a PayPal webhook notification this system consumes.
// Every nested field is optional on the wire.
type WebhookEvent struct {
	Id           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	Resource     WebhookResource `json:"resource"`
}

type WebhookResource struct {
	Id                string             `json:"id"`
	Status            string             `json:"status,omitempty"`
	CustomId          string             `json:"custom_id,omitempty"`
	Payer             *Payer             `json:"payer,omitempty"`
	PurchaseUnits     []PurchaseUnit     `json:"purchase_units,omitempty"`
	SupplementaryData *SupplementaryData `json:"supplementary_data,omitempty"`
	Amount            *Money             `json:"amount,omitempty"`
}

type Payer struct {
	EmailAddress string `json:"email_address,omitempty"`
	PayerId      string `json:"payer_id,omitempty"`
}

type PurchaseUnit struct {
	ReferenceId string    `json:"reference_id,omitempty"`
	CustomId    string    `json:"custom_id,omitempty"`
	Amount      *Money    `json:"amount,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

type Payments struct {
	Captures []Capture `json:"captures,omitempty"`
}

type SupplementaryData struct {
	RelatedIds *RelatedIds `json:"related_ids,omitempty"`
}

type RelatedIds struct {
	OrderId string `json:"order_id,omitempty"`
}

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Capture is the provider's view of a captured payment
type Capture struct {
	Id                string             `json:"id"`
	Status            string             `json:"status"`
	CustomId          string             `json:"custom_id,omitempty"`
	Amount            *Money             `json:"amount,omitempty"`
	SupplementaryData *SupplementaryData `json:"supplementary_data,omitempty"`
}

// Order is the provider's view of a checkout order
type Order struct {
	Id            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         *Payer         `json:"payer,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
}

// TransactionId returns the provider transaction id carried by the event.
func (e *WebhookEvent) TransactionId() string {
	return e.Resource.Id
}

// CustomId returns purchase_units[0].custom_id, falling back to resource.custom_id
// which capture events carry at the top level.
func (e *WebhookEvent) CustomId() string {
	if len(e.Resource.PurchaseUnits) > 0 && e.Resource.PurchaseUnits[0].CustomId != "" {
		return e.Resource.PurchaseUnits[0].CustomId
	}
	return e.Resource.CustomId
}

// OrderId returns supplementary_data.related_ids.order_id when present.
func (e *WebhookEvent) OrderId() string {
	if sd := e.Resource.SupplementaryData; sd != nil && sd.RelatedIds != nil {
		return sd.RelatedIds.OrderId
	}
	return ""
}

func (e *WebhookEvent) PayerEmail() string {
	if e.Resource.Payer != nil {
		return e.Resource.Payer.EmailAddress
	}
	return ""
}

func (e *WebhookEvent) PayerId() string {
	if e.Resource.Payer != nil {
		return e.Resource.Payer.PayerId
	}
	return ""
}

// OrderId returns the related order id of a capture.
func (c *Capture) OrderId() string {
	if c.SupplementaryData != nil && c.SupplementaryData.RelatedIds != nil {
		return c.SupplementaryData.RelatedIds.OrderId
	}
	return ""
}

// FirstCapture returns the first capture of the first purchase unit, if any.
func (o *Order) FirstCapture() *Capture {
	if len(o.PurchaseUnits) == 0 || o.PurchaseUnits[0].Payments == nil {
		return nil
	}
	if len(o.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil
	}
	return &o.PurchaseUnits[0].Payments.Captures[0]
}

// CustomId returns purchase_units[0].custom_id.
func (o *Order) CustomId() string {
	if len(o.PurchaseUnits) > 0 {
		return o.PurchaseUnits[0].CustomId
	}
	return ""
}
