package common

// DefaultCompanies is the reference set of B3 listed companies.
func DefaultCompanies() []Company {
	return []Company{
		{
			Symbol:       "PETR",
			Name:         "Petróleo Brasileiro S.A. - Petrobras",
			Description:  "Exploração, produção, refino e comercialização de petróleo e gás natural.",
			ShareClasses: []ShareClass{CommonShare, PreferredShare},
		},
		{
			Symbol:       "VALE",
			Name:         "Vale S.A.",
			Description:  "Mineração, logística, energia e siderurgia.",
			ShareClasses: []ShareClass{CommonShare},
		},
		{
			Symbol:       "ITUB",
			Name:         "Itaú Unibanco Holding S.A.",
			Description:  "Serviços bancários, como operações de crédito e financiamentos.",
			ShareClasses: []ShareClass{CommonShare, PreferredShare},
		},
		{
			Symbol:       "BBDC",
			Name:         "Banco Bradesco S.A.",
			Description:  "Serviços bancários, seguros, previdência e capitalização.",
			ShareClasses: []ShareClass{CommonShare, PreferredShare},
		},
		{
			Symbol:       "B3SA",
			Name:         "B3 S.A. - Brasil, Bolsa, Balcão",
			Description:  "Infraestrutura para negociação de ativos financeiros.",
			ShareClasses: []ShareClass{CommonShare, PreferredShare},
		},
		{
			Symbol:       "JBSS",
			Name:         "JBS S.A.",
			Description:  "Produção e comercialização de carne bovina, suína, frango e produtos relacionados.",
			ShareClasses: []ShareClass{CommonShare},
		},
		{
			Symbol:       "LREN",
			Name:         "Lojas Renner S.A.",
			Description:  "Varejo de moda.",
			ShareClasses: []ShareClass{CommonShare},
		},
		{
			Symbol:       "VVAR",
			Name:         "Via Varejo S.A.",
			Description:  "Comércio varejista de eletrodomésticos, móveis e produtos eletrônicos.",
			ShareClasses: []ShareClass{CommonShare},
		},
		{
			Symbol:       "GGBR",
			Name:         "Gerdau S.A.",
			Description:  "Produção de aço.",
			ShareClasses: []ShareClass{CommonShare, PreferredShare},
		},
		{
			Symbol:       "CIEL",
			Name:         "Cielo S.A.",
			Description:  "Meios de pagamento eletrônicos.",
			ShareClasses: []ShareClass{CommonShare},
		},
		{
			Symbol:       "XPLG",
			Name:         "XP Log FII",
			Description:  "Gestão ativa focada em investimentos imobiliários no segmento logístico.",
			ShareClasses: []ShareClass{Units},
		},
	}
}
