package relevance

// Keyword sets operate on folded text (see textnorm.Fold), so umlauts appear
// in their base-letter form next to the common oe/ue transliterations.

// mediaNoiseKeywords are high-signal non-figure media terms that frequently
// pollute classifieds results for Tonie searches. They are hard excludes:
// kept explicit and reviewable, matched as whole phrases.
var mediaNoiseKeywords = []string{
	"cd",
	"audio cd",
	"hoerspiel cd",
	"horspiel cd",
	"hoerbuch",
	"horbuch",
	"buch",
	"hardcover",
	"paperback",
	"taschenbuch",
	"comic",
	"dvd",
	"blu ray",
	"blu-ray",
	"kassette",
	"vinyl",
	"schallplatte",
	"ebook",
}

// contextTerms mark a listing as being about a Tonie figure at all.
var contextTerms = []string{
	"tonie",
	"tonies",
	"hoerfigur",
	"horfigur",
}

// excludeKeywords disqualify a scraped listing title at ingestion time
// (substring match): damaged goods, counterfeits, bare media.
var excludeKeywords = []string{
	"defekt",
	"kaputt",
	"ersatzteil",
	"reparatur",
	"fake",
	"falschung",
	"faelschung",
	"leer",
	"hulle",
	"huelle",
	"hoerspiel-cd",
	"horspiel-cd",
	"hoerspiel cd",
	"horspiel cd",
	"kassette",
	"dvd",
	"blu-ray",
	"buch",
	"hardcover",
	"paperback",
	"taschenbuch",
	"comic",
	"hoerbuch",
	"horbuch",
	"cd",
	"audio cd",
	"musik cd",
	"film",
	"roman",
	"mp3",
	"download",
}

// accessoryKeywords disqualify box/accessory listings that share the brand
// name but are not figures.
var accessoryKeywords = []string{
	"toniebox",
	"starterset",
	"ladestation",
	"tasche",
	"transportbox",
	"regal",
	"wandhalter",
	"aufbewahrung",
	"kopfhorer",
	"kopfhoerer",
	"akku",
	"netzteil",
}

// bundleKeywords disqualify multi-figure listings; a bundle price is not a
// single-figure price signal.
var bundleKeywords = []string{
	"bundle",
	"set",
	"paket",
	"konvolut",
	"sammlung",
	"lot",
	"mehrere",
}
