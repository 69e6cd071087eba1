package words

// DefaultBank is the built-in prompt pool.
var DefaultBank = []string{
	// animals
	"elephant", "giraffe", "penguin", "kangaroo", "octopus",
	"butterfly", "dinosaur", "dolphin", "flamingo", "gorilla",
	"hedgehog", "jellyfish", "koala", "lobster", "monkey",
	"narwhal", "ostrich", "panda", "rabbit", "snake",
	"tiger", "unicorn", "vulture", "walrus", "zebra",
	"dragon", "spider", "whale", "shark", "turtle",

	// food
	"pizza", "hamburger", "spaghetti", "ice cream", "birthday cake",
	"hot dog", "taco", "sushi", "popcorn", "watermelon",
	"banana", "apple pie", "sandwich", "french fries", "donut",
	"pancakes", "bacon", "cookie", "cupcake", "pineapple",

	// objects
	"umbrella", "telescope", "skateboard", "rocket ship", "treasure chest",
	"lightbulb", "scissors", "toothbrush", "microphone", "television",
	"bicycle", "guitar", "camera", "sunglasses", "ladder",
	"balloon", "candle", "flashlight", "magnet", "compass",
	"hourglass", "trophy", "crown", "sword", "shield",

	// actions and scenes
	"fishing", "surfing", "dancing", "sleeping", "flying",
	"swimming", "climbing", "cooking", "painting", "skiing",
	"skydiving", "juggling", "sneezing", "yawning", "laughing",
	"crying", "running", "jumping", "singing", "dreaming",

	// places
	"beach", "mountain", "castle", "volcano", "waterfall",
	"island", "jungle", "desert", "igloo", "lighthouse",
	"treehouse", "spaceship", "haunted house", "circus", "zoo",

	// people and characters
	"pirate", "wizard", "ninja", "astronaut", "cowboy",
	"mermaid", "robot", "vampire", "ghost", "superhero",
	"clown", "princess", "knight", "alien", "zombie",

	// compound
	"cat wearing a hat", "dog on a skateboard", "fish in a bowl",
	"monkey eating banana", "pig with wings", "snail racing",
	"chicken crossing road", "cow jumping moon", "bear camping",
	"bird building nest", "frog on lily pad", "mouse with cheese",
	"snowman melting", "rainbow", "thunderstorm", "shooting star",
	"campfire", "fireworks", "sunrise", "tornado",
}
