package themes

// categoryNames maps YouTube category IDs to readable names.
var categoryNames = map[string]string{
	"1":  "Film & Animation",
	"2":  "Autos & Vehicles",
	"10": "Music",
	"15": "Pets & Animals",
	"17": "Sports",
	"18": "Short Movies",
	"19": "Travel & Events",
	"20": "Gaming",
	"21": "Videoblogging",
	"22": "People & Blogs",
	"23": "Comedy",
	"24": "Entertainment",
	"25": "News & Politics",
	"26": "Howto & Style",
	"27": "Education",
	"28": "Science & Technology",
	"29": "Nonprofits & Activism",
	"30": "Movies",
	"31": "Anime/Animation",
	"32": "Action/Adventure",
	"33": "Classics",
	"34": "Comedy",
	"35": "Documentary",
	"36": "Drama",
	"37": "Family",
	"38": "Foreign",
	"39": "Horror",
	"40": "Sci-Fi/Fantasy",
	"41": "Thriller",
	"42": "Shorts",
	"43": "Shows",
	"44": "Trailers",
}

// CategoryName returns the readable name for a YouTube category ID, or
// "Unknown" when the ID is not in the taxonomy.
func CategoryName(categoryID string) string {
	if name, ok := categoryNames[categoryID]; ok {
		return name
	}
	return "Unknown"
}

// KeyDisplayName resolves a tracking key for display: category IDs map to
// their taxonomy name, free-form theme keys display as-is.
func KeyDisplayName(key string) string {
	if name, ok := categoryNames[key]; ok {
		return name
	}
	return key
}
