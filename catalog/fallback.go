package catalog

import "github.com/korjavin/genrequizbot/models"

// Fallback returns the built-in sample catalog used when the real one cannot be loaded
func Fallback() *models.Catalog {
	return &models.Catalog{
		Genres: []models.Genre{
			{
				ID:          "meiji",
				Name:        "Meiji Restoration",
				Description: "The beginning of Japan's modernisation",
				Questions: []models.Question{
					{
						ID:          1,
						Question:    "In which year did the Meiji Restoration take place?",
						Choices:     []string{"1867", "1868", "1869", "1870"},
						Correct:     1,
						Explanation: "The Meiji Restoration took place in 1868. The restoration of imperial rule was proclaimed and the Edo shogunate came to an end.",
					},
					{
						ID:          2,
						Question:    "In which year were the domains abolished and prefectures established?",
						Choices:     []string{"1869", "1870", "1871", "1872"},
						Correct:     2,
						Explanation: "The domains were abolished in 1871 (Meiji 4) and replaced by prefectures, establishing a centralised state.",
					},
				},
			},
			{
				ID:          "taisho",
				Name:        "Taisho Era",
				Description: "The age of Taisho democracy",
				Questions: []models.Question{
					{
						ID:          1,
						Question:    "When did the Taisho era begin?",
						Choices:     []string{"1910", "1911", "1912", "1913"},
						Correct:     2,
						Explanation: "The Taisho era lasted from 1912 (Taisho 1) to 1926. Emperor Meiji died and Emperor Taisho ascended the throne.",
					},
					{
						ID:          2,
						Question:    "What did Japan do during the First World War?",
						Choices:     []string{"Stayed neutral", "Joined the Allies", "Joined the Central Powers", "Did not take part"},
						Correct:     1,
						Explanation: "Under the Anglo-Japanese Alliance Japan entered the war on the Allied side, and the wartime boom expanded its economy.",
					},
				},
			},
		},
	}
}
