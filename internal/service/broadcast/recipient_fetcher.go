package broadcast

import (
	"math/rand/v2"

	"github.com/localboost/localboost/internal/domain"
)

// ShuffleFunc reorders an audience in place before sampling
type ShuffleFunc func(contacts []*domain.Contact)

// RandomShuffle is the default ShuffleFunc
func RandomShuffle(contacts []*domain.Contact) {
	rand.Shuffle(len(contacts), func(i, j int) {
		contacts[i], contacts[j] = contacts[j], contacts[i]
	})
}

// TestSample is an audience split into the two test arms and the holdout
// that waits for the winner
type TestSample struct {
	VariantA []*domain.Contact
	VariantB []*domain.Contact
	Holdout  []*domain.Contact
}

// SplitAudience shuffles a copy of audience and cuts it according to the
// test configuration. Every contact lands in exactly one group.
func SplitAudience(audience []*domain.Contact, config *domain.AbTestConfig, shuffle ShuffleFunc) TestSample {
	contacts := append([]*domain.Contact(nil), audience...)
	if shuffle != nil {
		shuffle(contacts)
	}

	sizeA, sizeB := config.SampleSizes(len(contacts))
	return TestSample{
		VariantA: contacts[:sizeA],
		VariantB: contacts[sizeA : sizeA+sizeB],
		Holdout:  contacts[sizeA+sizeB:],
	}
}

// ExcludeContacts drops contacts whose id is in ids, keeping order
func ExcludeContacts(audience []*domain.Contact, ids []string) []*domain.Contact {
	if len(ids) == 0 {
		return audience
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}

	out := make([]*domain.Contact, 0, len(audience))
	for _, c := range audience {
		if _, ok := skip[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func deliveriesFor(contacts []*domain.Contact, variant domain.Variant, content domain.BroadcastContent) []Delivery {
	out := make([]Delivery, len(contacts))
	for i, c := range contacts {
		out[i] = Delivery{Contact: c, Variant: variant, Content: content}
	}
	return out
}
