// Package fingerprint 计算媒体文件的内容指纹（MD5），带磁盘缓存。
//
// 指纹只在目标路径碰撞的分组里才需要，所以按需计算、按路径缓存；
// 对独立文件的计算互不依赖，可以安全并行。
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/infra/fsx"
)

const cacheName = "fingerprints.json"

type entry struct {
	Size int64  `json:"size"`
	MD5  string `json:"md5"`
}

// Store 提供 <workDir>/fingerprints.json 的指纹缓存读写。
//
// 约束：
// - readOnly=true 时 Save 为 no-op，缓存不落盘（供只读消费方使用）
// - 引擎 dry-run 与 apply 都以可写方式打开：缓存只是加速器，
//   dry-run 写入它不改变任何计划语义
// - 缓存条目按 (路径, 大小) 校验；大小变了就重算
type Store struct {
	workDir  string
	readOnly bool

	mu      sync.Mutex
	entries map[string]entry
}

// Open 打开（或初始化）指纹缓存。缓存文件不存在不算错误。
func Open(workDir string, readOnly bool) (*Store, error) {
	s := &Store{
		workDir:  filepath.Clean(strings.TrimSpace(workDir)),
		readOnly: readOnly,
		entries:  map[string]entry{},
	}
	b, err := os.ReadFile(filepath.Join(s.workDir, cacheName))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &s.entries); err != nil {
		// 缓存坏了就当没有：指纹可以重算，不值得让整次运行失败。
		s.entries = map[string]entry{}
	}
	return s, nil
}

// Compute 并行计算 files 的指纹，返回 路径 -> 十六进制 MD5。
// 命中缓存（路径与大小一致）的文件不重读内容。
// 任一文件不可读是致命错误：输入本身坏了，best-effort 也无从谈起。
func (s *Store) Compute(files []domain.MediaFile, workers int) (map[string]string, error) {
	if workers < 1 {
		workers = 1
	}

	out := make(map[string]string, len(files))
	todo := make([]domain.MediaFile, 0, len(files))

	s.mu.Lock()
	for _, f := range files {
		if e, ok := s.entries[f.AbsPath]; ok && e.Size == f.Size {
			out[f.AbsPath] = e.MD5
			continue
		}
		todo = append(todo, f)
	}
	s.mu.Unlock()

	if len(todo) == 0 {
		return out, nil
	}

	type result struct {
		path string
		size int64
		sum  string
		err  error
	}

	jobs := make(chan domain.MediaFile)
	results := make(chan result, len(todo))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				sum, err := hashFile(f.AbsPath)
				results <- result{path: f.AbsPath, size: f.Size, sum: sum, err: err}
			}
		}()
	}

	go func() {
		for _, f := range todo {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("计算指纹失败 %q：%w", r.path, r.err)
			}
			continue
		}
		out[r.path] = r.sum
		s.mu.Lock()
		s.entries[r.path] = entry{Size: r.size, MD5: r.sum}
		s.mu.Unlock()
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Save 把缓存原子写回磁盘。readOnly 时是显式 no-op。
func (s *Store) Save() error {
	if s.readOnly {
		return nil
	}

	s.mu.Lock()
	// encoding/json 对 map 键做字典序编码，缓存文件天然可 diff。
	b, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(s.workDir, cacheName, b)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
