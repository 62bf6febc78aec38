package viewer

// avatarVertexShader transforms avatar geometry and passes lighting
// inputs through. Skinning is not applied on the GPU; skinned meshes
// render in their bind pose.
const avatarVertexShader = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexCoord;

uniform mat4 uMVP;
uniform mat4 uModel;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
    gl_Position = uMVP * vec4(aPosition, 1.0);
    vNormal = mat3(uModel) * aNormal;
    vTexCoord = aTexCoord;
}
`

// avatarFragmentShader shades with a single directional light and the
// material's base color texture.
const avatarFragmentShader = `#version 410 core

in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uBaseColor;
uniform vec3 uLightDir;
uniform vec3 uAmbient;

out vec4 fragColor;

void main() {
    vec4 base = texture(uBaseColor, vTexCoord);
    if (base.a < 0.01) {
        discard;
    }
    float ndl = max(dot(normalize(vNormal), -normalize(uLightDir)), 0.0);
    vec3 lit = base.rgb * (uAmbient + vec3(ndl));
    fragColor = vec4(min(lit, vec3(1.0)), base.a);
}
`
