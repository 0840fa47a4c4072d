package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"creativelens/internal/domain"
	"creativelens/pkg/fingerprint"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

// FileLink is the creative identity written onto performance records.
type FileLink struct {
	FileName string `json:"fileName"`
	FileHash string `json:"fileHash"`
}

// LinkResult reports a single manual link.
type LinkResult struct {
	FileLink

	AdName         string `json:"adName"`
	RecordsUpdated int    `json:"recordsUpdated"`
}

// AdLink pairs an ad with the file bulk linking chose for it.
type AdLink struct {
	AdName   string `json:"adName"`
	FileName string `json:"fileName"`
	FileHash string `json:"fileHash"`
}

// FileFailure is a file that could not be fingerprinted.
type FileFailure struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// BulkLinkResult summarizes a bulk link: AdsLinked of FilesSupplied.
type BulkLinkResult struct {
	FilesSupplied  int           `json:"filesSupplied"`
	AdsLinked      int           `json:"adsLinked"`
	RecordsUpdated int           `json:"recordsUpdated"`
	Links          []AdLink      `json:"links"`
	Failures       []FileFailure `json:"failures,omitempty"`
}

// LinkService attaches creative files to ads by content hash.
type LinkService struct {
	perfRepo    domain.PerformanceRepository
	historyRepo domain.HistoryRepository
	clientRepo  domain.ClientRepository
	matcher     CreativeMatcher
	filenames   FilenameMatcher
	logger      *logger.Logger
	metrics     *metrics.Metrics
	workerPool  int
}

func NewLinkService(
	perfRepo domain.PerformanceRepository,
	historyRepo domain.HistoryRepository,
	clientRepo domain.ClientRepository,
	matcher CreativeMatcher,
	filenames FilenameMatcher,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	workerPool int,
) *LinkService {
	if filenames == nil {
		filenames = SubstringFilenameMatcher{}
	}
	if workerPool <= 0 {
		workerPool = 1
	}
	return &LinkService{
		perfRepo:    perfRepo,
		historyRepo: historyRepo,
		clientRepo:  clientRepo,
		matcher:     matcher,
		filenames:   filenames,
		logger:      logger,
		metrics:     metrics,
		workerPool:  workerPool,
	}
}

// LinkCreative stamps file's name and hash on every record of the client's ad.
func (s *LinkService) LinkCreative(ctx context.Context, clientID, adName string, file domain.UploadedFile) (*LinkResult, error) {
	log := s.logger.WithContext(ctx)

	if _, err := s.clientRepo.Get(ctx, clientID); err != nil {
		return nil, err
	}

	link, err := hashFile(file)
	if err != nil {
		s.metrics.RecordLinkFileFailure()
		return nil, err
	}

	updated := 0
	err = s.perfRepo.Update(ctx, func(data domain.PerformanceData) error {
		records := data[clientID]
		for i := range records {
			if records[i].AdName == adName {
				records[i].LinkedFileName = link.FileName
				records[i].LinkedFileHash = link.FileHash
				updated++
			}
		}
		if updated == 0 {
			return fmt.Errorf("%w: %q", domain.ErrAdNotFound, adName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLinks("single", 1)
	log.WithFields(map[string]any{
		"client_id": clientID,
		"ad_name":   adName,
		"file_name": link.FileName,
		"records":   updated,
	}).Info("Linked creative to ad")

	return &LinkResult{AdName: adName, FileLink: link, RecordsUpdated: updated}, nil
}

// BulkLink resolves each unmatched ad in the window to the first supplied file
// whose name appears in its presentation text, then saves all links at once.
// Files that cannot be read are reported and skipped.
func (s *LinkService) BulkLink(ctx context.Context, clientID string, window domain.DateWindow, files []domain.UploadedFile) (*BulkLinkResult, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoFiles
	}
	log := s.logger.WithContext(ctx)

	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	links, failures := s.hashFiles(ctx, files)
	result := &BulkLinkResult{FilesSupplied: len(files), Failures: failures}
	for _, f := range failures {
		s.metrics.RecordLinkFileFailure()
		log.WithFields(map[string]any{"file_name": f.FileName, "error": f.Error}).Warn("Skipping unreadable file")
	}

	records, err := s.perfRepo.GetByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance data: %w", err)
	}
	history, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}

	ads := Aggregate(RecordsInWindow(records, window), domain.ForClient(history, clientID), client.Currency, s.matcher)
	chosen := make(map[string]FileLink)
	for _, ad := range Unmatched(ads) {
		for _, l := range links {
			if s.filenames.MatchesFilename(ad.ImageVideoPresentation, l.FileName) {
				chosen[ad.AdName] = l
				result.Links = append(result.Links, AdLink{AdName: ad.AdName, FileName: l.FileName, FileHash: l.FileHash})
				break
			}
		}
	}

	if len(chosen) > 0 {
		err = s.perfRepo.Update(ctx, func(data domain.PerformanceData) error {
			recs := data[clientID]
			for i := range recs {
				if l, ok := chosen[recs[i].AdName]; ok {
					recs[i].LinkedFileName = l.FileName
					recs[i].LinkedFileHash = l.FileHash
					result.RecordsUpdated++
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	result.AdsLinked = len(chosen)
	s.metrics.RecordLinks("bulk", result.AdsLinked)
	log.WithFields(map[string]any{
		"client_id": clientID,
		"window":    window.String(),
		"files":     result.FilesSupplied,
		"linked":    result.AdsLinked,
		"failed":    len(failures),
	}).Info("Bulk link completed")

	return result, nil
}

// hashFiles fingerprints files concurrently. Links keep the input order with
// names deduplicated case-insensitively: the first occurrence fixes the
// position and the last one supplies the hash.
func (s *LinkService) hashFiles(ctx context.Context, files []domain.UploadedFile) ([]FileLink, []FileFailure) {
	type hashed struct {
		link FileLink
		err  error
	}
	out := make([]hashed, len(files))

	jobs := make(chan int, len(files))
	var wg sync.WaitGroup
	for i := 0; i < s.workerPool; i++ {
		wg.Go(func() {
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					out[idx] = hashed{link: FileLink{FileName: files[idx].Name()}, err: err}
					continue
				}
				link, err := hashFile(files[idx])
				out[idx] = hashed{link: link, err: err}
			}
		})
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var links []FileLink
	var failures []FileFailure
	position := make(map[string]int)
	for i, h := range out {
		if h.err != nil {
			failures = append(failures, FileFailure{FileName: files[i].Name(), Error: h.err.Error()})
			continue
		}
		key := strings.ToLower(h.link.FileName)
		if p, seen := position[key]; seen {
			links[p].FileHash = h.link.FileHash
			continue
		}
		position[key] = len(links)
		links = append(links, h.link)
	}
	return links, failures
}

func hashFile(file domain.UploadedFile) (FileLink, error) {
	link := FileLink{FileName: file.Name()}
	rc, err := file.Open()
	if err != nil {
		return link, fmt.Errorf("failed to open %q: %w", link.FileName, err)
	}
	defer rc.Close()

	hash, _, err := fingerprint.Reader(rc)
	if err != nil {
		return link, fmt.Errorf("failed to read %q: %w", link.FileName, err)
	}
	link.FileHash = hash
	return link, nil
}
