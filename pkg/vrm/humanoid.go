package vrm

// BoneRole identifies a standardized humanoid skeletal role.
// The zero value means the node has no role assigned.
type BoneRole int

// Humanoid bone roles as declared by the VRM humanoid block.
const (
	RoleUnknown BoneRole = iota
	RoleHips
	RoleLeftUpperLeg
	RoleRightUpperLeg
	RoleLeftLowerLeg
	RoleRightLowerLeg
	RoleLeftFoot
	RoleRightFoot
	RoleSpine
	RoleChest
	RoleNeck
	RoleHead
	RoleLeftShoulder
	RoleRightShoulder
	RoleLeftUpperArm
	RoleRightUpperArm
	RoleLeftLowerArm
	RoleRightLowerArm
	RoleLeftHand
	RoleRightHand
	RoleLeftToes
	RoleRightToes
	RoleLeftEye
	RoleRightEye
	RoleJaw
	RoleLeftThumbProximal
	RoleLeftThumbIntermediate
	RoleLeftThumbDistal
	RoleLeftIndexProximal
	RoleLeftIndexIntermediate
	RoleLeftIndexDistal
	RoleLeftMiddleProximal
	RoleLeftMiddleIntermediate
	RoleLeftMiddleDistal
	RoleLeftRingProximal
	RoleLeftRingIntermediate
	RoleLeftRingDistal
	RoleLeftLittleProximal
	RoleLeftLittleIntermediate
	RoleLeftLittleDistal
	RoleRightThumbProximal
	RoleRightThumbIntermediate
	RoleRightThumbDistal
	RoleRightIndexProximal
	RoleRightIndexIntermediate
	RoleRightIndexDistal
	RoleRightMiddleProximal
	RoleRightMiddleIntermediate
	RoleRightMiddleDistal
	RoleRightRingProximal
	RoleRightRingIntermediate
	RoleRightRingDistal
	RoleRightLittleProximal
	RoleRightLittleIntermediate
	RoleRightLittleDistal
	RoleUpperChest

	roleCount
)

// roleNames uses the VRM 0.x humanoid bone spellings.
var roleNames = [roleCount]string{
	RoleUnknown:                 "",
	RoleHips:                    "hips",
	RoleLeftUpperLeg:            "leftUpperLeg",
	RoleRightUpperLeg:           "rightUpperLeg",
	RoleLeftLowerLeg:            "leftLowerLeg",
	RoleRightLowerLeg:           "rightLowerLeg",
	RoleLeftFoot:                "leftFoot",
	RoleRightFoot:               "rightFoot",
	RoleSpine:                   "spine",
	RoleChest:                   "chest",
	RoleNeck:                    "neck",
	RoleHead:                    "head",
	RoleLeftShoulder:            "leftShoulder",
	RoleRightShoulder:           "rightShoulder",
	RoleLeftUpperArm:            "leftUpperArm",
	RoleRightUpperArm:           "rightUpperArm",
	RoleLeftLowerArm:            "leftLowerArm",
	RoleRightLowerArm:           "rightLowerArm",
	RoleLeftHand:                "leftHand",
	RoleRightHand:               "rightHand",
	RoleLeftToes:                "leftToes",
	RoleRightToes:               "rightToes",
	RoleLeftEye:                 "leftEye",
	RoleRightEye:                "rightEye",
	RoleJaw:                     "jaw",
	RoleLeftThumbProximal:       "leftThumbProximal",
	RoleLeftThumbIntermediate:   "leftThumbIntermediate",
	RoleLeftThumbDistal:         "leftThumbDistal",
	RoleLeftIndexProximal:       "leftIndexProximal",
	RoleLeftIndexIntermediate:   "leftIndexIntermediate",
	RoleLeftIndexDistal:         "leftIndexDistal",
	RoleLeftMiddleProximal:      "leftMiddleProximal",
	RoleLeftMiddleIntermediate:  "leftMiddleIntermediate",
	RoleLeftMiddleDistal:        "leftMiddleDistal",
	RoleLeftRingProximal:        "leftRingProximal",
	RoleLeftRingIntermediate:    "leftRingIntermediate",
	RoleLeftRingDistal:          "leftRingDistal",
	RoleLeftLittleProximal:      "leftLittleProximal",
	RoleLeftLittleIntermediate:  "leftLittleIntermediate",
	RoleLeftLittleDistal:        "leftLittleDistal",
	RoleRightThumbProximal:      "rightThumbProximal",
	RoleRightThumbIntermediate:  "rightThumbIntermediate",
	RoleRightThumbDistal:        "rightThumbDistal",
	RoleRightIndexProximal:      "rightIndexProximal",
	RoleRightIndexIntermediate:  "rightIndexIntermediate",
	RoleRightIndexDistal:        "rightIndexDistal",
	RoleRightMiddleProximal:     "rightMiddleProximal",
	RoleRightMiddleIntermediate: "rightMiddleIntermediate",
	RoleRightMiddleDistal:       "rightMiddleDistal",
	RoleRightRingProximal:       "rightRingProximal",
	RoleRightRingIntermediate:   "rightRingIntermediate",
	RoleRightRingDistal:         "rightRingDistal",
	RoleRightLittleProximal:     "rightLittleProximal",
	RoleRightLittleIntermediate: "rightLittleIntermediate",
	RoleRightLittleDistal:       "rightLittleDistal",
	RoleUpperChest:              "upperChest",
}

// String returns the VRM spelling of the role, or "" for RoleUnknown.
func (r BoneRole) String() string {
	if r < 0 || r >= roleCount {
		return ""
	}
	return roleNames[r]
}

var rolesByName = func() map[string]BoneRole {
	m := make(map[string]BoneRole, roleCount)
	for r := BoneRole(1); r < roleCount; r++ {
		m[roleNames[r]] = r
	}
	return m
}()

// ParseBoneRole resolves a VRM humanoid bone name to its role.
// Unrecognized names resolve to RoleUnknown.
func ParseBoneRole(name string) BoneRole {
	return rolesByName[name]
}

// Roles returns every declarable role in declaration order.
func Roles() []BoneRole {
	out := make([]BoneRole, 0, roleCount-1)
	for r := BoneRole(1); r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}
