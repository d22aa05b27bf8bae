package exports

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-consolidation/internal/ledger"
)

// HeaderMap maps provider export headers onto canonical ledger columns.
// Headers without an entry are kept verbatim.
type HeaderMap map[string]string

var commonHeaders = HeaderMap{
	"id":                   ledger.ColID,
	"ID":                   ledger.ColID,
	"Status":               ledger.ColStatus,
	"Situação":             ledger.ColSituation,
	"Data de competência":  ledger.ColCompetenceDate,
	"Data movimento":       ledger.ColSettlementDate,
	"Categoria 1":          ledger.ColCategory,
	"Valor na Categoria 1": ledger.ColCategoryRatioValue,
	"Descrição":            ledger.ColDescription,
}

var payableHeaders = HeaderMap{
	"Data original de vencimento": ledger.ColDueDate,
	"Valor (R$)":                  ledger.ColPaid,
	"Nome do fornecedor/cliente":  ledger.ColNegotiatorName,
}

var receivableHeaders = HeaderMap{
	"Data de vencimento":                   ledger.ColDueDate,
	"Valor total recebido da parcela (R$)": ledger.ColReceivedAmount,
	"Valor da parcela em aberto (R$)":      ledger.ColOpenAmount,
	"Nome do cliente":                      ledger.ColNegotiatorName,
	"Data do último pagamento":             ledger.ColLastAcquittanceDate,
}

// HeadersFor returns the header map of one record type with k declared
// cost-center slots.
func HeadersFor(rt ledger.RecordType, k int) HeaderMap {
	m := make(HeaderMap)
	for h, c := range commonHeaders {
		m[h] = c
	}
	specific := payableHeaders
	if rt == ledger.Revenue {
		specific = receivableHeaders
	}
	for h, c := range specific {
		m[h] = c
	}
	for _, s := range ledger.DeclareSlots(k) {
		m[fmt.Sprintf("Centro de Custo %d", s.Index)] = s.NameColumn
		m[fmt.Sprintf("Valor no Centro de Custo %d", s.Index)] = s.ValueColumn
	}
	return m
}

// Canonical maps a raw header to its canonical column.
func (m HeaderMap) Canonical(header string) string {
	h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	if c, ok := m[h]; ok {
		return c
	}
	return h
}
