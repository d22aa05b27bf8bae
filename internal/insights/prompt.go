package insights

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const systemInstruction = "Você é um analista financeiro experiente."

// BuildPrompt renders the yearly summary as the analyst prompt.
func BuildPrompt(s *Summary) string {
	var b strings.Builder

	b.WriteString("Você é um analista financeiro sênior. Recebi um extrato financeiro com as seguintes informações agregadas")
	fmt.Fprintf(&b, " (ano %d, posição em %s, %d lançamentos liquidados):\n\n", s.Year, s.AsOf, s.Records)

	b.WriteString("1. Visão geral:\n")
	fmt.Fprintf(&b, "- Total recebido (entradas): %s\n", money(s.TotalReceived))
	fmt.Fprintf(&b, "- Total pago (saídas): %s\n", money(s.TotalPaid))
	fmt.Fprintf(&b, "- Receita vencida: %s\n", money(s.OverdueRevenue))
	fmt.Fprintf(&b, "- Despesa vencida: %s\n", money(s.OverdueExpense))
	fmt.Fprintf(&b, "- Saldo líquido (entradas - saídas): %s\n\n", money(s.NetBalance))

	b.WriteString("2. Top 3 categorias mais frequentes:\n")
	for _, c := range s.TopCategories {
		fmt.Fprintf(&b, "- %s: %d\n", c.Category, c.Count)
	}

	b.WriteString("\n3. Resumo trimestral (valores liquidados por tipo):\n")
	for _, q := range s.Quarters {
		fmt.Fprintf(&b, "- T%d: receitas %s, despesas %s\n", q.Quarter, money(q.Revenue), money(q.Expense))
	}

	b.WriteString("\n4. Categorias com aumentos mensais acima de 30%:\n")
	if len(s.GrowingCategories) == 0 {
		b.WriteString("- nenhuma\n")
	}
	for _, g := range s.GrowingCategories {
		fmt.Fprintf(&b, "- %s %s: %s\n", g.Month, g.Category, percent(g.Growth))
	}

	b.WriteString("\n5. Fluxo de caixa mensal (mês, saldo do mês, saldo acumulado):\n")
	for _, f := range s.CashFlow {
		fmt.Fprintf(&b, "- %s: %s, %s\n", f.Month, money(f.Net), money(f.Balance))
	}

	b.WriteString("\n6. Rentabilidade mensal (lucro e margem de lucro):\n")
	for _, p := range s.Profitability {
		margin := "n/d"
		if p.Margin != nil {
			margin = percent(*p.Margin)
		}
		fmt.Fprintf(&b, "- %s: lucro %s, margem %s\n", p.Month, money(p.Profit), margin)
	}

	fmt.Fprintf(&b, "\n7. Inadimplência (vencidos sobre receitas realizadas): %s\n", percent(s.Delinquency))

	if len(s.CostCenters) > 0 {
		b.WriteString("\n8. Totais por centro de custo:\n")
		for _, c := range s.CostCenters {
			fmt.Fprintf(&b, "- %s: receitas %s, despesas %s\n", c.Name, money(c.Revenue), money(c.Expense))
		}
	}

	b.WriteString("\nFaça um resumo executivo e me forneça:\n")
	b.WriteString("- Insights sobre a saúde financeira e tendências.\n")
	b.WriteString("- Sinais de alerta (pendências, desequilíbrios).\n")
	b.WriteString("- Oportunidades de otimização (redução de custos ou melhoria na previsibilidade).\n")
	b.WriteString("- Recomendações práticas com base no histórico recente (por trimestre e por categoria).\n\n")
	b.WriteString("Organize a resposta em seções no formato \"#### **Título**\" seguido do conteúdo.\n")
	b.WriteString("Seja objetivo, claro e direto.\n")

	return b.String()
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
