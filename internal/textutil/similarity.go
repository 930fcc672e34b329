package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// Match is the result of BestMatch.
type Match struct {
	Index int
	Score float64
}

// BestMatch returns the candidate most similar to query. Ties keep the
// earliest candidate. ok is false when no candidate reaches minScore.
func BestMatch(query string, candidates []string, minScore float64) (Match, bool) {
	queryFP := NewFingerprint(query)
	if queryFP == nil || len(candidates) == 0 {
		return Match{}, false
	}

	corpus := NewCorpus()
	prints := make([]*Fingerprint, len(candidates))
	for i, candidate := range candidates {
		prints[i] = NewFingerprint(candidate)
		corpus.Add(prints[i])
	}
	idf := corpus.IDF()
	queryFP = queryFP.WithIDF(idf)

	best := Match{Index: -1}
	for i, fp := range prints {
		score := CosineSimilarity(queryFP, fp.WithIDF(idf))
		if score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}
	if best.Index < 0 || best.Score < minScore {
		return Match{}, false
	}
	return best, true
}
