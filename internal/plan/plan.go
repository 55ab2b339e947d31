// Package plan 读写阶段边界工件：file_list.json / pairs.json / move_plan.json。
// 工件是阶段命令之间的唯一契约，形状冻结，写入必须原子、顺序必须稳定。
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/infra/fsx"
)

// 工件文件名（相对工作目录）。
const (
	FileListName = "file_list.json"
	PairsName    = "pairs.json"
	MovePlanName = "move_plan.json"
)

// ErrCode 标识工件层错误类别。
const (
	ErrCodeArtifactMissing = "artifact_missing"
	ErrCodeArtifactInvalid = "artifact_invalid"
)

// Error 是带错误码的工件错误。
type Error struct {
	Code string
	Name string // 工件文件名
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s：%s（%s）", e.Code, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FileList 是扫描阶段的产物：分类好的媒体与边车路径，均为绝对路径、有序。
type FileList struct {
	Media []string `json:"media"`
	JSON  []string `json:"json"`
}

// WriteFileList 原子写出扫描清单。
func WriteFileList(workDir string, fl FileList) error {
	return writeArtifact(workDir, FileListName, fl)
}

// ReadFileList 读取扫描清单。两个字段都必须出现（允许为空数组），
// 缺字段说明工件被手工改坏，直接失败——不要在坏清单上继续流水线。
func ReadFileList(workDir string) (FileList, error) {
	b, err := readArtifact(workDir, FileListName)
	if err != nil {
		return FileList{}, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return FileList{}, &Error{Code: ErrCodeArtifactInvalid, Name: FileListName, Err: err}
	}
	for _, key := range []string{"media", "json"} {
		if _, ok := raw[key]; !ok {
			return FileList{}, &Error{
				Code: ErrCodeArtifactInvalid,
				Name: FileListName,
				Err:  fmt.Errorf("缺少必需字段 %q", key),
			}
		}
	}
	var fl FileList
	if err := json.Unmarshal(b, &fl); err != nil {
		return FileList{}, &Error{Code: ErrCodeArtifactInvalid, Name: FileListName, Err: err}
	}
	return fl, nil
}

// WritePairs 原子写出配对表：媒体绝对路径 -> 边车绝对路径（只含配上的）。
// encoding/json 按键排序，写出即稳定。
func WritePairs(workDir string, pairs []domain.Pair) error {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Media.AbsPath] = p.Sidecar.AbsPath
	}
	return writeArtifact(workDir, PairsName, m)
}

// ReadPairs 读取配对表。
func ReadPairs(workDir string) (map[string]string, error) {
	b, err := readArtifact(workDir, PairsName)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, &Error{Code: ErrCodeArtifactInvalid, Name: PairsName, Err: err}
	}
	return m, nil
}

// WriteMovePlan 原子写出移动计划。条目顺序由规划器保证（按 dest 排序），
// 这里只负责忠实落盘。
func WriteMovePlan(workDir string, entries []domain.MovePlanEntry) error {
	return writeArtifact(workDir, MovePlanName, entries)
}

// ReadMovePlan 读取移动计划。每条 entry 的 src/dest 不得为空。
func ReadMovePlan(workDir string) ([]domain.MovePlanEntry, error) {
	b, err := readArtifact(workDir, MovePlanName)
	if err != nil {
		return nil, err
	}
	var entries []domain.MovePlanEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, &Error{Code: ErrCodeArtifactInvalid, Name: MovePlanName, Err: err}
	}
	for i, e := range entries {
		if e.Src == "" || e.Dest == "" {
			return nil, &Error{
				Code: ErrCodeArtifactInvalid,
				Name: MovePlanName,
				Err:  fmt.Errorf("第 %d 条缺少 src/dest", i),
			}
		}
	}
	return entries, nil
}

func writeArtifact(workDir, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &Error{Code: ErrCodeArtifactInvalid, Name: name, Err: err}
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomicReplace(workDir, name, b); err != nil {
		return &Error{Code: ErrCodeArtifactInvalid, Name: name, Err: err}
	}
	return nil
}

func readArtifact(workDir, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(workDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: ErrCodeArtifactMissing, Name: name, Err: err}
		}
		return nil, &Error{Code: ErrCodeArtifactInvalid, Name: name, Err: err}
	}
	return b, nil
}
