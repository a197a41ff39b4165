package common

// Broker identifies a market participant. It carries no behavior: whatever
// plays the broker role subscribes to books and trades through observer
// interfaces.
type Broker struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func (b Broker) String() string {
	if b.Name == "" {
		return b.ID
	}
	return b.Name
}

func DefaultBrokers() []Broker {
	return []Broker{
		{ID: "XPI", Name: "XP Investimentos"},
		{ID: "BTG", Name: "BTG Pactual"},
		{ID: "ITAU", Name: "Itaú Corretora"},
		{ID: "CLEAR", Name: "Clear Corretora"},
		{ID: "RICO", Name: "Rico Investimentos"},
		{ID: "MODAL", Name: "Modalmais"},
	}
}
