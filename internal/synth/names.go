package synth

import "fmt"

// Fixed name pools keep identity fields deterministic under a seed; a faker
// library would break the reproducibility contract.
var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer",
	"Michael", "Linda", "David", "Elizabeth", "William", "Barbara",
	"Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah",
	"Charles", "Karen", "Christopher", "Lisa", "Daniel", "Nancy",
	"Matthew", "Betty", "Anthony", "Margaret", "Mark", "Sandra",
	"Donald", "Ashley", "Steven", "Kimberly", "Paul", "Emily",
	"Andrew", "Donna", "Joshua", "Michelle",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
	"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
	"Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
	"Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
	"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
	"Walker", "Young", "Allen", "King", "Wright", "Scott",
	"Torres", "Nguyen", "Hill", "Flores",
}

func (g *Generator) fullName() string {
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]
	return first + " " + last
}

func (g *Generator) ssn() string {
	return fmt.Sprintf("%03d-%02d-%04d",
		g.rng.Intn(900)+100,
		g.rng.Intn(100),
		g.rng.Intn(10000),
	)
}

// customerHexID formats the primary record identifier, e.g. CUS_0x000001.
func customerHexID(i int) string {
	return fmt.Sprintf("CUS_0x%06x", i+1)
}

// customerID formats the secondary customer identifier, e.g. CUS_00000001.
func customerID(i int) string {
	return fmt.Sprintf("CUS_%08d", i+1)
}
