package services

import "testing"

func TestClassifyCriticalKeywords(t *testing.T) {
	cases := []struct {
		text     string
		category string
	}{
		{"Can I knock down the wall between my kitchen and lounge?", "structural"},
		{"Is the wall between the kitchen and hall load bearing?", "structural"},
		{"I can smell gas near the boiler", "gas"},
		{"There are exposed wires behind the oven", "electrical"},
		{"My smoke alarm not working since yesterday", "fire"},
		{"There is a burst pipe under the sink", "water"},
		{"Do I need planning permission for a garden room?", "legal"},
	}

	for _, tc := range cases {
		res := Classify(tc.text)
		if !res.Critical {
			t.Errorf("Classify(%q) not critical, want category %s", tc.text, tc.category)
			continue
		}
		if res.Category != tc.category {
			t.Errorf("Classify(%q) category = %s, want %s", tc.text, res.Category, tc.category)
		}
	}
}

func TestClassifyPatterns(t *testing.T) {
	cases := []string{
		"Is it safe to hang a TV on this wall?",
		"Can I drill into the ceiling above the stairs?",
		"Could I do the wiring myself?",
		"We want to build an extension on the back",
	}
	for _, text := range cases {
		if res := Classify(text); !res.Critical {
			t.Errorf("Classify(%q) = safe, want critical", text)
		}
	}
}

func TestClassifyBenign(t *testing.T) {
	cases := []string{
		"What colour is my front door?",
		"When was the development completed?",
		"What is the warranty period for the kitchen appliances?",
		"How do I set the thermostat schedule?",
		"Where is my water meter?",
	}
	for _, text := range cases {
		if res := Classify(text); res.Critical {
			t.Errorf("Classify(%q) = critical (%s), want safe", text, res.MatchedKeyword)
		}
	}
}

func TestClassifyNormalizesApostrophes(t *testing.T) {
	if res := Classify("There’s a gas leak in the kitchen"); !res.Critical {
		t.Errorf("curly apostrophe text not intercepted")
	}
}
