package recipe

// sampleOutputs are returned in reduced mode, where no model is loaded.
// They are kept in the normalized text form so they go through Parse like real output.
var sampleOutputs = []string{
	"title: roasted chickpea and spinach curry\n" +
		"ingredients: 1 can chickpeas, drained--2 cups fresh spinach--1 onion, diced--2 cloves garlic, minced--" +
		"1 tbsp curry powder--1 can coconut milk--salt and pepper to taste\n" +
		"directions: Preheat the oven to 400 degrees F.--Toss the chickpeas with oil and roast for 20 minutes.--" +
		"Saute the onion and garlic until soft.--Stir in the curry powder and cook for 1 minute.--" +
		"Add the coconut milk and roasted chickpeas and simmer for 10 minutes.--" +
		"Fold in the spinach until wilted and season with salt and pepper.",
	"title: lemon garlic butter salmon\n" +
		"ingredients: 2 salmon fillets--3 tbsp butter--2 cloves garlic, minced--1 lemon, juiced--1 tbsp parsley, chopped\n" +
		"directions: Melt the butter in a skillet over medium heat.--Add the garlic and cook until fragrant.--" +
		"Sear the salmon 4 minutes per side.--Pour the lemon juice over the fish and sprinkle with parsley.",
}

// Sample returns the i-th precomputed record, wrapping around the sample list.
// Each call returns a fresh record that the caller owns.
func Sample(i int) *Record {
	if i < 0 {
		i = -i
	}
	return Parse(sampleOutputs[i%len(sampleOutputs)])
}

// SampleCount reports how many precomputed records exist.
func SampleCount() int {
	return len(sampleOutputs)
}
