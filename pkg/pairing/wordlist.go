package pairing

// wordlist is the fixed vocabulary six-word pairing codes are drawn from.
// 256 entries means one word carries 8 bits, so six words span 48 bits —
// ample for a code that lives minutes and is backstopped by the
// challenge-response handshake, not relied on as the sole secret.
var wordlist = [256]string{
	"able", "acid", "acorn", "actor", "adapt", "adept", "adult", "after",
	"again", "agent", "agile", "aider", "alarm", "album", "alert", "alias",
	"alike", "alive", "allow", "alloy", "alone", "along", "aloof", "alpha",
	"amber", "amount", "ample", "amuse", "anchor", "angel", "anger", "angle",
	"ankle", "apple", "apply", "apron", "arena", "argue", "arise", "armor",
	"aroma", "arrow", "ashen", "aside", "askew", "asset", "atlas", "atom",
	"attic", "audio", "autumn", "avoid", "await", "awake", "award", "azure",
	"badge", "baker", "balmy", "banjo", "barge", "basil", "basin", "basis",
	"baton", "beach", "beam", "beard", "beast", "begin", "being", "belch",
	"belly", "below", "bench", "berry", "bike", "birch", "bison", "blade",
	"blank", "blast", "blaze", "bliss", "block", "bloom", "blunt", "blush",
	"board", "boast", "boat", "bogus", "bonus", "booth", "border", "bored",
	"bound", "boxer", "brace", "brain", "brand", "brave", "bread", "break",
	"breed", "brick", "bride", "brief", "bring", "broad", "broil", "brook",
	"broom", "brown", "brush", "buddy", "budge", "build", "bunch", "burst",
	"cabin", "cable", "camel", "camp", "canal", "candy", "canoe", "carbon",
	"card", "carry", "carve", "cedar", "cement", "chain", "chair", "chalk",
	"champ", "chant", "chaos", "charm", "chart", "chase", "check", "cherry",
	"chess", "chest", "chief", "child", "chill", "chime", "china", "choir",
	"chunk", "cider", "circle", "civic", "claim", "clamp", "clash", "class",
	"clean", "clear", "climb", "cling", "clock", "close", "cloth", "cloud",
	"clown", "coast", "cobra", "cocoa", "coffee", "coin", "comet", "comic",
	"coral", "couch", "cough", "count", "cover", "coyote", "craft", "crane",
	"crate", "crawl", "cream", "creek", "crest", "crime", "crisp", "cross",
	"crowd", "crown", "crust", "cubic", "curve", "cycle", "daily", "dance",
	"dandy", "darts", "dated", "dealt", "decoy", "delay", "delta", "dense",
	"depth", "derby", "diary", "dicey", "digit", "dimly", "diner", "dirty",
	"ditch", "dizzy", "dodge", "donor", "doubt", "dough", "dozen", "draft",
	"drain", "drama", "dream", "dress", "drift", "drill", "drive", "droop",
	"drove", "drown", "drum", "dusty", "eager", "early", "earth", "easel",
	"ebony", "edge", "eight", "eject", "elbow", "elder", "elect", "elite",
	"elope", "email", "ember", "empty", "enjoy", "enter", "entry", "equal",
}

var wordIndex = func() map[string]byte {
	m := make(map[string]byte, len(wordlist))
	for i, w := range wordlist {
		m[w] = byte(i)
	}
	return m
}()
