package vrm

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// ExtensionName is the glTF extension block carrying VRM 0.x data.
const ExtensionName = "VRM"

func init() {
	gltf.RegisterExtension(ExtensionName, unmarshalExtension)
}

// Extension is the VRM 0.x extension block. Only the humanoid mapping is
// interpreted by the importer; the remaining blocks are retained raw as
// extension points for phases that are not implemented yet.
type Extension struct {
	ExporterVersion string    `json:"exporterVersion,omitempty"`
	Meta            *Meta     `json:"meta,omitempty"`
	Humanoid        *Humanoid `json:"humanoid,omitempty"`

	FirstPerson        json.RawMessage `json:"firstPerson,omitempty"`
	BlendShapeMaster   json.RawMessage `json:"blendShapeMaster,omitempty"`
	SecondaryAnimation json.RawMessage `json:"secondaryAnimation,omitempty"`
	MaterialProperties json.RawMessage `json:"materialProperties,omitempty"`
}

// Meta is the VRM metadata block (license, author, usage permissions).
type Meta struct {
	Title   string `json:"title"`
	Version string `json:"version"`
	Author  string `json:"author"`
	Contact string `json:"contactInformation"`

	AllowedUserName     string `json:"allowedUserName,omitempty"`
	ViolentUsageName    string `json:"violentUssageName,omitempty"`
	SexualUsageName     string `json:"sexualUssageName,omitempty"`
	CommercialUsageName string `json:"commercialUssageName,omitempty"`
	OtherPermissionURL  string `json:"otherPermissionUrl,omitempty"`

	LicenseName     string `json:"licenseName"`
	OtherLicenseURL string `json:"otherLicenseUrl,omitempty"`
}

// Humanoid is the VRM humanoid block: bone name to node index bindings.
type Humanoid struct {
	Bones []HumanBone `json:"humanBones"`
}

// HumanBone binds one humanoid bone name to a glTF node index.
type HumanBone struct {
	Bone string `json:"bone"`
	Node int    `json:"node"`
}

func unmarshalExtension(data []byte) (interface{}, error) {
	ext := new(Extension)
	if err := json.Unmarshal(data, ext); err != nil {
		return nil, err
	}
	return ext, nil
}

// extensionOf returns the decoded VRM extension of a document, or nil.
func extensionOf(doc *gltf.Document) *Extension {
	if ext, ok := doc.Extensions[ExtensionName].(*Extension); ok {
		return ext
	}
	return nil
}
