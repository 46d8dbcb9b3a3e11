package strategy

import (
	"math/rand/v2"
	"strings"
)

var (
	maleFirstNames = []string{
		"James", "John", "Robert", "Michael", "William", "David", "Richard", "Joseph", "Thomas", "Charles",
		"Liam", "Noah", "Oliver", "Benjamin", "Elijah", "Lucas", "Mason", "Logan", "Daniel", "Henry",
		"Alexander", "Samuel", "Jacob", "Ethan", "Matthew", "Andrew", "Jack", "Ryan", "Nathan", "Leo",
	}
	femaleFirstNames = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan", "Jessica", "Sarah", "Karen",
		"Emma", "Olivia", "Ava", "Isabella", "Sophia", "Charlotte", "Mia", "Amelia", "Harper", "Evelyn",
		"Abigail", "Emily", "Ella", "Grace", "Chloe", "Victoria", "Lily", "Hannah", "Zoe", "Nora",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
		"Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
		"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
		"Walker", "Young", "Allen", "King", "Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
	}
)

// RandomName случайные имена людей
type RandomName struct {
	nameType, gender, caseMode string
	rng                        *rand.Rand
}

func newRandomName(p Params, rng *rand.Rand) (Strategy, error) {
	return &RandomName{
		nameType: p.String("name_type"),
		gender:   p.String("gender"),
		caseMode: p.String("case"),
		rng:      rng,
	}, nil
}

// Generate возвращает count имен
func (s *RandomName) Generate(_ *Context, count int) ([]any, error) {
	out := make([]any, count)
	for i := range out {
		var name string
		switch s.nameType {
		case "last":
			name = s.pick(lastNames)
		case "full":
			name = s.first() + " " + s.pick(lastNames)
		default:
			name = s.first()
		}
		out[i] = applyCase(name, s.caseMode)
	}
	return out, nil
}

func (s *RandomName) first() string {
	switch s.gender {
	case "male":
		return s.pick(maleFirstNames)
	case "female":
		return s.pick(femaleFirstNames)
	}
	if s.rng.IntN(2) == 0 {
		return s.pick(maleFirstNames)
	}
	return s.pick(femaleFirstNames)
}

func (s *RandomName) pick(list []string) string {
	return list[s.rng.IntN(len(list))]
}

func applyCase(name, mode string) string {
	switch mode {
	case "upper":
		return strings.ToUpper(name)
	case "lower":
		return strings.ToLower(name)
	}
	return name
}
