package domain

// MediaFile 描述一次扫描得到的媒体文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段只做 stat，不读文件内容
// - 发现之后不可变；指纹等派生信息由 infra/fingerprint 另行缓存
type MediaFile struct {
	AbsPath string
	RelPath string
	Dir     string // 父目录绝对路径
	Name    string // 含扩展名
	Base    string // 不含扩展名
	Ext     string // ".jpg"（小写）
	Size    int64
	ModUnix int64
}

// Provenance 返回该文件的来源标签（父目录名，即导出时的相册/合集名）。
func (m MediaFile) Provenance() string {
	if m.Dir == "" {
		return ""
	}
	i := len(m.Dir) - 1
	for i >= 0 && m.Dir[i] != '/' && m.Dir[i] != '\\' {
		i--
	}
	return m.Dir[i+1:]
}

// SidecarFile 描述一个 Takeout 的 JSON 元数据边车文件。
// 内容按需解析（takeout.Parse），扫描阶段只记录路径。
type SidecarFile struct {
	AbsPath string
	Dir     string
	Name    string
}
