package catalog

import "github.com/barros404/finance-sub003/internal/core/domain"

// DefaultAccounts is the built-in PGC seed used when no XLSX file or
// database rows are available. Codes and descriptions follow the Angola
// Plano Geral de Contas account plan.
func DefaultAccounts() []domain.PgcAccount {
	return []domain.PgcAccount{
		// classe 1 - meios fixos e investimentos
		{Code: "11", Description: "Imobilizações corpóreas", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "111", Description: "Terrenos e recursos naturais", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "112", Description: "Edifícios e outras construções", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "113", Description: "Equipamento básico", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "114", Description: "Equipamento de carga e transporte", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "115", Description: "Equipamento administrativo", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		{Code: "12", Description: "Imobilizações incorpóreas", Class: 1, Type: domain.AccountDebit, Category: "Meios fixos e investimentos", Validation: domain.AccountValidada},
		// classe 2 - existências
		{Code: "21", Description: "Compras de existências", Class: 2, Type: domain.AccountDebit, Category: "Existências", Validation: domain.AccountValidada},
		{Code: "22", Description: "Matérias-primas subsidiárias e de consumo", Class: 2, Type: domain.AccountDebit, Category: "Existências", Validation: domain.AccountValidada},
		{Code: "26", Description: "Mercadorias", Class: 2, Type: domain.AccountDebit, Category: "Existências", Validation: domain.AccountValidada},
		// classe 3 - terceiros
		{Code: "31", Description: "Clientes", Class: 3, Type: domain.AccountDebit, Category: "Terceiros", Validation: domain.AccountValidada},
		{Code: "32", Description: "Fornecedores", Class: 3, Type: domain.AccountCredit, Category: "Terceiros", Validation: domain.AccountValidada},
		{Code: "34", Description: "Estado impostos e taxas", Class: 3, Type: domain.AccountCredit, Category: "Terceiros", Validation: domain.AccountValidada},
		// classe 4 - meios monetários
		{Code: "43", Description: "Depósitos à ordem", Class: 4, Type: domain.AccountDebit, Category: "Meios monetários", Validation: domain.AccountValidada},
		{Code: "45", Description: "Caixa", Class: 4, Type: domain.AccountDebit, Category: "Meios monetários", Validation: domain.AccountValidada},
		// classe 6 - proveitos e ganhos por natureza
		{Code: "61", Description: "Vendas de mercadorias e produtos", Class: 6, Type: domain.AccountCredit, Category: "Proveitos e ganhos", Validation: domain.AccountValidada},
		{Code: "62", Description: "Prestações de serviços", Class: 6, Type: domain.AccountCredit, Category: "Proveitos e ganhos", Validation: domain.AccountValidada},
		{Code: "63", Description: "Outros proveitos operacionais", Class: 6, Type: domain.AccountCredit, Category: "Proveitos e ganhos", Validation: domain.AccountValidada},
		{Code: "66", Description: "Proveitos e ganhos financeiros gerais", Class: 6, Type: domain.AccountCredit, Category: "Proveitos e ganhos", Validation: domain.AccountValidada},
		// classe 7 - custos e perdas por natureza
		{Code: "71", Description: "Custo das existências vendidas", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Validation: domain.AccountValidada},
		{Code: "72", Description: "Custos com o pessoal salários e remunerações", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Validation: domain.AccountValidada},
		{Code: "731", Description: "Fornecimentos combustíveis e lubrificantes", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Subcategory: "Fornecimentos e serviços", Validation: domain.AccountValidada},
		{Code: "732", Description: "Fornecimentos electricidade e água", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Subcategory: "Fornecimentos e serviços", Validation: domain.AccountValidada},
		{Code: "733", Description: "Serviços de comunicação e telecomunicações", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Subcategory: "Fornecimentos e serviços", Validation: domain.AccountValidada},
		{Code: "734", Description: "Rendas e alugueres de instalações", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Subcategory: "Fornecimentos e serviços", Validation: domain.AccountValidada},
		{Code: "735", Description: "Deslocações transportes e estadas", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Subcategory: "Fornecimentos e serviços", Validation: domain.AccountValidada},
		{Code: "75", Description: "Outros custos e perdas operacionais", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Validation: domain.AccountValidada},
		{Code: "76", Description: "Custos e perdas financeiros gerais", Class: 7, Type: domain.AccountDebit, Category: "Custos e perdas", Validation: domain.AccountValidada},
	}
}
