package directory

import (
	"github.com/google/uuid"

	"github.com/microwavekid/mentionserve/pkg/mention"
)

// Builtin returns a small demo directory so the CLI and examples work
// without snapshot data. IDs are generated fresh on every call.
func Builtin(opts ...Option) *Directory {
	d := New(opts...)

	seed := []mention.Entity{
		{Type: mention.CategoryStakeholder, Name: "Sarah Martinez", Confidence: 0.95,
			Attributes: map[string]string{"title": "VP of Sales", "email": "sarah.martinez@acme.example"}},
		{Type: mention.CategoryStakeholder, Name: "Sarah Kim", Confidence: 0.78,
			Attributes: map[string]string{"title": "Procurement Lead", "email": "s.kim@globex.example"}},
		{Type: mention.CategoryStakeholder, Name: "Marcus Chen", Confidence: 0.91,
			Attributes: map[string]string{"title": "CTO", "email": "mchen@initech.example"}},
		{Type: mention.CategoryStakeholder, Name: "Priya Natarajan", Confidence: 0.84,
			Attributes: map[string]string{"title": "Economic Buyer", "email": "priya.n@umbra.example"}},
		{Type: mention.CategoryStakeholder, Name: "David Okafor", Confidence: 0.73,
			Attributes: map[string]string{"title": "Solutions Architect"}},

		{Type: mention.CategoryDeal, Name: "Acme Renewal FY26", Confidence: 0.92,
			Attributes: map[string]string{"value": "480000", "stage": "negotiation"}},
		{Type: mention.CategoryDeal, Name: "Globex Expansion", Confidence: 0.88,
			Attributes: map[string]string{"value": "1250000", "stage": "proposal"}},
		{Type: mention.CategoryDeal, Name: "Initech Platform Pilot", Confidence: 0.67,
			Attributes: map[string]string{"value": "95000", "stage": "discovery"}},
		{Type: mention.CategoryDeal, Name: "Umbra Multi-Year", Confidence: 0.81,
			Attributes: map[string]string{"value": "2100000", "stage": "qualification"}},

		{Type: mention.CategoryAccount, Name: "Acme Corp", Confidence: 0.97,
			Attributes: map[string]string{"industry": "manufacturing", "tier": "enterprise"}},
		{Type: mention.CategoryAccount, Name: "Globex International", Confidence: 0.9,
			Attributes: map[string]string{"industry": "logistics", "tier": "enterprise"}},
		{Type: mention.CategoryAccount, Name: "Initech", Confidence: 0.74,
			Attributes: map[string]string{"industry": "software", "tier": "mid-market"}},
		{Type: mention.CategoryAccount, Name: "Umbra Dynamics", Confidence: 0.86,
			Attributes: map[string]string{"industry": "aerospace", "tier": "enterprise"}},
	}

	for _, e := range seed {
		e.ID = uuid.NewString()
		if _, err := d.Add(e); err != nil {
			continue
		}
	}
	return d
}
