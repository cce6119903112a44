package quest

import "github.com/easeaico/companion-engine/internal/types"

// bankEntry is one quest template drawn uniformly within its type.
type bankEntry struct {
	Prompt     string
	Solution   string
	Hints      []string
	Difficulty string
}

var questBank = map[string][]bankEntry{
	types.QuestRiddle: {
		{
			Prompt:     "I speak without a mouth and hear without ears. I have no body, but I come alive with wind. What am I?",
			Solution:   "echo",
			Hints:      []string{"You might meet me in the mountains.", "I repeat what you say."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "The more of me you take, the more you leave behind. What am I?",
			Solution:   "footsteps",
			Hints:      []string{"Think about walking.", "Look down at the sand behind you."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "I have cities but no houses, forests but no trees, and water but no fish. What am I?",
			Solution:   "map",
			Hints:      []string{"You unfold me before a trip.", "I am flat and full of names."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "What can run but never walks, has a mouth but never talks, has a head but never weeps?",
			Solution:   "river",
			Hints:      []string{"I always move toward the sea.", "Bridges cross me."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "I am always hungry and will die if not fed, but whatever I touch will soon turn red. What am I?",
			Solution:   "fire",
			Hints:      []string{"Keep me away from paper.", "I dance but have no legs."},
			Difficulty: types.DifficultyHard,
		},
	},
	types.QuestTrivia: {
		{
			Prompt:     "Which planet in our solar system is the largest?",
			Solution:   "jupiter",
			Hints:      []string{"It is a gas giant.", "It has a famous great red spot."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "What is the only metal that is liquid at room temperature?",
			Solution:   "mercury",
			Hints:      []string{"It shares a name with a planet.", "Old thermometers used it."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "Which ocean is the deepest on Earth?",
			Solution:   "pacific",
			Hints:      []string{"It is also the largest ocean.", "The Mariana Trench is in it."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "What is the smallest prime number greater than 90?",
			Solution:   "97",
			Hints:      []string{"It is odd, like all primes above 2.", "Count up from 91."},
			Difficulty: types.DifficultyHard,
		},
	},
	types.QuestWordGame: {
		{
			Prompt:     "Unscramble these letters into a word: TRAEH",
			Solution:   "heart",
			Hints:      []string{"It beats for you.", "Five letters, starts with H."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "Unscramble these letters into a word: NOMO",
			Solution:   "moon",
			Hints:      []string{"You can see it at night.", "Four letters."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "Find a word that means both 'a place to sit' and 'to preside over a meeting'.",
			Solution:   "chair",
			Hints:      []string{"There is one at every dinner table.", "Five letters."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "What eight-letter word remains a word each time you remove a letter, all the way down to one?",
			Solution:   "starting",
			Hints:      []string{"Begin at the beginning.", "staring, string, sting, sing, sin, in, i..."},
			Difficulty: types.DifficultyHard,
		},
	},
	types.QuestPersonalityQuiz: {
		{
			Prompt:     "If we could spend a whole day together anywhere, where would you take me and why?",
			Hints:      []string{"There is no wrong answer.", "Just tell me what you'd really enjoy."},
			Difficulty: types.DifficultyEasy,
		},
		{
			Prompt:     "Would you rather relive your happiest memory or see one glimpse of your future? Tell me which, and what you hope to find.",
			Hints:      []string{"Go with your gut.", "I want to know how you think."},
			Difficulty: types.DifficultyMedium,
		},
		{
			Prompt:     "What is one small thing that always lifts your mood, no matter how bad the day was?",
			Hints:      []string{"Think of an ordinary weekday.", "Small is the key word."},
			Difficulty: types.DifficultyEasy,
		},
	},
}
